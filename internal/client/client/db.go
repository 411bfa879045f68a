package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/migrations"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/repositories/operations"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/repositories/uploads"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/filex"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type Repositories struct {
	Operations operations.Repository
	Uploads    uploads.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Operations: operations.NewSQLiteRepository(db),
		Uploads:    uploads.NewSQLiteRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if filex.IsPlainPath(dsn) {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection serializes the queue writers
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
