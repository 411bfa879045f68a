package operations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/dbx"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

// SQLiteRepository implements Repository on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, ops []*models.PendingOperation) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `delete from sync_operations`); err != nil {
			return fmt.Errorf("failed to clear operations: %w", err)
		}

		query := `insert into sync_operations
			(id, position, collection, document_id, kind, payload, enqueued_at, attempts, last_error)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		for i, op := range ops {
			payload, err := encodePayload(op.Payload)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, query,
				op.ID, i, op.Collection, op.DocumentID, string(op.Kind), payload, op.EnqueuedAt, op.Attempts, op.LastError)
			if err != nil {
				return fmt.Errorf("failed to insert operation %s: %w", op.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.PendingOperation, error) {
	query := `select id, collection, document_id, kind, payload, enqueued_at, attempts, last_error
		from sync_operations order by position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations: %w", err)
	}
	defer rows.Close()

	var result []*models.PendingOperation
	for rows.Next() {
		op := &models.PendingOperation{}
		var kind string
		var payload sql.NullString
		if err := rows.Scan(&op.ID, &op.Collection, &op.DocumentID, &kind, &payload, &op.EnqueuedAt, &op.Attempts, &op.LastError); err != nil {
			return nil, err
		}
		op.Kind = remote.Kind(kind)
		if op.Payload, err = decodePayload(payload); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) AddDead(ctx context.Context, op *models.DeadOperation) error {
	payload, err := encodePayload(op.Payload)
	if err != nil {
		return err
	}
	query := `insert or replace into sync_operations_dead
		(id, collection, document_id, kind, payload, enqueued_at, attempts, last_error, dead_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		op.ID, op.Collection, op.DocumentID, string(op.Kind), payload, op.EnqueuedAt, op.Attempts, op.LastError, op.DeadAt)
	if err != nil {
		return fmt.Errorf("failed to insert dead operation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAllDead(ctx context.Context) ([]*models.DeadOperation, error) {
	query := `select id, collection, document_id, kind, payload, enqueued_at, attempts, last_error, dead_at
		from sync_operations_dead order by dead_at, enqueued_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select dead operations: %w", err)
	}
	defer rows.Close()

	var result []*models.DeadOperation
	for rows.Next() {
		op := &models.DeadOperation{}
		var kind string
		var payload sql.NullString
		if err := rows.Scan(&op.ID, &op.Collection, &op.DocumentID, &kind, &payload, &op.EnqueuedAt, &op.Attempts, &op.LastError, &op.DeadAt); err != nil {
			return nil, err
		}
		op.Kind = remote.Kind(kind)
		if op.Payload, err = decodePayload(payload); err != nil {
			return nil, fmt.Errorf("dead operation %s: %w", op.ID, err)
		}
		result = append(result, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteDead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from sync_operations_dead where id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dead operation: %w", err)
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

func encodePayload(p map[string]any) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodePayload(s sql.NullString) (map[string]any, error) {
	if !s.Valid {
		return nil, nil
	}
	var p map[string]any
	if err := json.Unmarshal([]byte(s.String), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, nil
}
