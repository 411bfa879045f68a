package remote

import (
	"context"
	"encoding/json"
	"io"
	"maps"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
)

// Kind is the mutation type recorded for a pending operation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	}
	return false
}

// Outcome tells what a conditional write did.
type Outcome int

const (
	// OutcomeApplied means the mutation was written.
	OutcomeApplied Outcome = iota
	// OutcomeSkipped means the stored document was newer; nothing was written.
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}
	return "applied"
}

// Mutation is a single write against one document.
type Mutation struct {
	Collection string
	DocumentID string
	Kind       Kind
	Payload    map[string]any
	Timestamp  int64
}

// Fields returns the fields written for m. Create and update write the payload
// stamped with the mutation timestamp; delete writes a soft-delete marker
// instead of removing the document.
func (m Mutation) Fields() map[string]any {
	if m.Kind == KindDelete {
		return map[string]any{
			common.DeletedField:   true,
			common.TimestampField: m.Timestamp,
		}
	}
	fields := make(map[string]any, len(m.Payload)+1)
	maps.Copy(fields, m.Payload)
	fields[common.TimestampField] = m.Timestamp
	return fields
}

// Document is a snapshot of a remote document.
type Document struct {
	Collection string
	ID         string
	Fields     map[string]any
}

// Timestamp returns the recorded writer timestamp, or 0 when absent or not numeric.
func (d *Document) Timestamp() int64 {
	if d == nil {
		return 0
	}
	switch v := d.Fields[common.TimestampField].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// Deleted reports whether the document carries the soft-delete marker.
func (d *Document) Deleted() bool {
	if d == nil {
		return false
	}
	b, _ := d.Fields[common.DeletedField].(bool)
	return b
}

// NewerThan reports whether d exists and holds a timestamp strictly greater than ts.
func (d *Document) NewerThan(ts int64) bool {
	return d != nil && d.Timestamp() > ts
}

// DocumentStore is the remote structured-document storage.
//
// Get returns common.ErrNotFound when the document does not exist. Set
// replaces the whole document; Update merges fields into an existing one and
// fails with common.ErrNotFound when there is nothing to merge into.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// ConditionalWriter is implemented by stores that can check the stored
// timestamp and write in one atomic step.
type ConditionalWriter interface {
	Apply(ctx context.Context, m Mutation) (Outcome, error)
}

// ProgressFunc receives bytes transferred so far and the total size.
type ProgressFunc func(transferred, total int64)

// BlobStore is the remote binary storage.
type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, metadata map[string]string, progress ProgressFunc) error
	// URL returns a retrieval reference for an uploaded object.
	URL(ctx context.Context, path string) (string, error)
}
