package uploads

import (
	"context"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
)

// Repository stores the upload queue.
type Repository interface {
	ReplaceAll(ctx context.Context, items []*models.QueuedUpload) error
	GetAll(ctx context.Context) ([]*models.QueuedUpload, error)

	AddDead(ctx context.Context, item *models.DeadUpload) error
	GetAllDead(ctx context.Context) ([]*models.DeadUpload, error)
	DeleteDead(ctx context.Context, id string) error
}
