// Package documents is the server-side document store backing the sync
// service, kept in PostgreSQL as one JSONB row per document.
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/dbx"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/migrations"
)

// PostgresStore implements remote.DocumentStore and remote.ConditionalWriter.
type PostgresStore struct {
	db *sql.DB
}

var (
	_ remote.DocumentStore     = (*PostgresStore)(nil)
	_ remote.ConditionalWriter = (*PostgresStore)(nil)
)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Open connects to dsn with the pgx driver and migrates the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	return get(ctx, s.db, collection, id, false)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	return set(ctx, s.db, collection, id, fields)
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return update(ctx, s.db, collection, id, fields)
}

// Apply writes m unless the stored document carries a newer timestamp. The
// read and the write share one serializable transaction with the row locked.
func (s *PostgresStore) Apply(ctx context.Context, m remote.Mutation) (remote.Outcome, error) {
	if !m.Kind.Valid() {
		return remote.OutcomeApplied, fmt.Errorf("%w: unknown operation kind %q", common.ErrInvalidInput, m.Kind)
	}

	outcome := remote.OutcomeApplied
	err := dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := get(ctx, tx, m.Collection, m.DocumentID, true)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if cur.NewerThan(m.Timestamp) {
			outcome = remote.OutcomeSkipped
			return nil
		}
		if m.Kind == remote.KindUpdate {
			return update(ctx, tx, m.Collection, m.DocumentID, m.Fields())
		}
		return set(ctx, tx, m.Collection, m.DocumentID, m.Fields())
	})
	if err != nil {
		return remote.OutcomeApplied, err
	}
	return outcome, nil
}

func get(ctx context.Context, q dbx.DBTX, collection, id string, lock bool) (*remote.Document, error) {
	query := `SELECT fields FROM documents WHERE collection = $1 AND id = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	var raw []byte
	err := q.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return &remote.Document{Collection: collection, ID: id, Fields: fields}, nil
}

func set(ctx context.Context, q dbx.DBTX, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	doc := remote.Document{Fields: fields}

	query := `
		INSERT INTO documents (collection, id, fields, ts, deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET
			fields = EXCLUDED.fields,
			ts = EXCLUDED.ts,
			deleted = EXCLUDED.deleted,
			updated_at = now()`
	if _, err := q.ExecContext(ctx, query, collection, id, raw, doc.Timestamp(), doc.Deleted()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func update(ctx context.Context, q dbx.DBTX, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	var ts sql.NullInt64
	if t := (&remote.Document{Fields: fields}).Timestamp(); t != 0 {
		ts = sql.NullInt64{Int64: t, Valid: true}
	}

	query := `
		UPDATE documents
		SET fields = fields || $3::jsonb,
			ts = COALESCE($4, ts),
			updated_at = now()
		WHERE collection = $1 AND id = $2`
	res, err := q.ExecContext(ctx, query, collection, id, raw, ts)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s/%s: %w", collection, id, common.ErrNotFound)
	}
	return nil
}
