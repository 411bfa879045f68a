package uploads

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/migrations"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/models"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))
	return db
}

func TestReplaceAll_GetAll_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	items := []*models.QueuedUpload{
		{ID: "2", FilePath: "/tmp/rec.m4a", DestinationPath: "recordings/s1.m4a", Metadata: map[string]string{"session": "s1"}, EnqueuedAt: 5},
		{ID: "1", FilePath: "/tmp/img.png", DestinationPath: "images/a.png", Metadata: map[string]string{}, EnqueuedAt: 6, Attempts: 1, LastError: "timeout"},
	}
	require.NoError(t, r.ReplaceAll(ctx, items))

	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	require.NoError(t, r.ReplaceAll(ctx, items[1:]))
	got, err = r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestNilMetadata(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.ReplaceAll(ctx, []*models.QueuedUpload{{ID: "x", FilePath: "f", DestinationPath: "d"}}))
	got, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Metadata)
}

func TestDeadLetters(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	dead := &models.DeadUpload{
		QueuedUpload: models.QueuedUpload{ID: "u", FilePath: "f", DestinationPath: "d", Metadata: map[string]string{"k": "v"}, EnqueuedAt: 1, Attempts: 3, LastError: "boom"},
		DeadAt:       9,
	}
	require.NoError(t, r.AddDead(ctx, dead))

	got, err := r.GetAllDead(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dead, got[0])

	require.NoError(t, r.DeleteDead(ctx, "u"))
	assert.ErrorIs(t, r.DeleteDead(ctx, "u"), common.ErrNotFound)
}
