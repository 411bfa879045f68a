package operations

import (
	"context"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
)

// Repository stores the operation queue.
type Repository interface {
	// ReplaceAll overwrites the persisted queue with ops.
	ReplaceAll(ctx context.Context, ops []*models.PendingOperation) error
	// GetAll returns the persisted queue in order.
	GetAll(ctx context.Context) ([]*models.PendingOperation, error)

	// AddDead records a dead-lettered operation, replacing any earlier record with the same id.
	AddDead(ctx context.Context, op *models.DeadOperation) error
	GetAllDead(ctx context.Context) ([]*models.DeadOperation, error)
	// DeleteDead removes one dead letter; common.ErrNotFound if it does not exist.
	DeleteDead(ctx context.Context, id string) error
}
