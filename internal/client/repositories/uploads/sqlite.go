package uploads

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/dbx"
)

// SQLiteRepository implements Repository on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, items []*models.QueuedUpload) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `delete from uploads`); err != nil {
			return fmt.Errorf("failed to clear uploads: %w", err)
		}

		query := `insert into uploads
			(id, position, file_path, destination_path, metadata, enqueued_at, attempts, last_error)
			values (?, ?, ?, ?, ?, ?, ?, ?)`
		for i, u := range items {
			meta, err := json.Marshal(u.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}
			_, err = tx.ExecContext(ctx, query,
				u.ID, i, u.FilePath, u.DestinationPath, string(meta), u.EnqueuedAt, u.Attempts, u.LastError)
			if err != nil {
				return fmt.Errorf("failed to insert upload %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.QueuedUpload, error) {
	query := `select id, file_path, destination_path, metadata, enqueued_at, attempts, last_error
		from uploads order by position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.QueuedUpload
	for rows.Next() {
		u := &models.QueuedUpload{}
		var meta string
		if err := rows.Scan(&u.ID, &u.FilePath, &u.DestinationPath, &meta, &u.EnqueuedAt, &u.Attempts, &u.LastError); err != nil {
			return nil, err
		}
		if u.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("upload %s: %w", u.ID, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) AddDead(ctx context.Context, u *models.DeadUpload) error {
	meta, err := json.Marshal(u.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	query := `insert or replace into uploads_dead
		(id, file_path, destination_path, metadata, enqueued_at, attempts, last_error, dead_at)
		values (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		u.ID, u.FilePath, u.DestinationPath, string(meta), u.EnqueuedAt, u.Attempts, u.LastError, u.DeadAt)
	if err != nil {
		return fmt.Errorf("failed to insert dead upload: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAllDead(ctx context.Context) ([]*models.DeadUpload, error) {
	query := `select id, file_path, destination_path, metadata, enqueued_at, attempts, last_error, dead_at
		from uploads_dead order by dead_at, enqueued_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select dead uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.DeadUpload
	for rows.Next() {
		u := &models.DeadUpload{}
		var meta string
		if err := rows.Scan(&u.ID, &u.FilePath, &u.DestinationPath, &meta, &u.EnqueuedAt, &u.Attempts, &u.LastError, &u.DeadAt); err != nil {
			return nil, err
		}
		if u.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("dead upload %s: %w", u.ID, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteDead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from uploads_dead where id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dead upload: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func decodeMetadata(s string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return m, nil
}
