package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
)

// Apply writes m to store unless the stored document is newer.
//
// Stores implementing ConditionalWriter do the check and the write atomically.
// Others get a read followed by an unconditional write; a concurrent writer
// landing between the two is not detected.
func Apply(ctx context.Context, store DocumentStore, m Mutation) (Outcome, error) {
	if cw, ok := store.(ConditionalWriter); ok {
		return cw.Apply(ctx, m)
	}

	doc, err := store.Get(ctx, m.Collection, m.DocumentID)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return OutcomeApplied, fmt.Errorf("fetch %s/%s: %w", m.Collection, m.DocumentID, err)
	case doc.NewerThan(m.Timestamp):
		return OutcomeSkipped, nil
	}

	if err := Write(ctx, store, m); err != nil {
		return OutcomeApplied, err
	}
	return OutcomeApplied, nil
}

// Write performs m without any conflict check.
func Write(ctx context.Context, store DocumentStore, m Mutation) error {
	var err error
	switch m.Kind {
	case KindCreate, KindDelete:
		err = store.Set(ctx, m.Collection, m.DocumentID, m.Fields())
	case KindUpdate:
		err = store.Update(ctx, m.Collection, m.DocumentID, m.Fields())
	default:
		return fmt.Errorf("%w: unknown kind %q", common.ErrInvalidInput, m.Kind)
	}
	if err != nil {
		return fmt.Errorf("%s %s/%s: %w", m.Kind, m.Collection, m.DocumentID, err)
	}
	return nil
}
