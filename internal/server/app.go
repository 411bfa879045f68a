// Package server wires the sync server: PostgreSQL documents, presigned S3
// blobs and the gRPC endpoint, with graceful shutdown on signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/auth"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/blobs"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/config"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/documents"

	gs "github.com/CheonhoPark-dev/tutorsim-sync/internal/server/grpc"
)

var openDatabase = documents.Open

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := openDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	presigner := blobs.NewS3Presigner(blobs.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		Expiry:       c.PresignExpiry,
	})

	var opts []gs.Option
	if c.GRPCWebAddr != "" {
		opts = append(opts, gs.WithGRPCWeb(c.GRPCWebAddr))
	}
	if c.MetricsAddr != "" {
		opts = append(opts, gs.WithMetricsAddress(c.MetricsAddr))
	}

	s := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, documents.NewPostgresStore(db), presigner, c.SecretKey, opts...)

	return &App{config: c, logger: logger, db: db, server: s}, nil
}

// MintToken issues an access token for subject signed with the configured secret.
func MintToken(c *config.Config, subject string) (string, error) {
	return auth.GenerateToken(subject, []byte(c.SecretKey), c.AccessTokenValidityDuration)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives, then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	return err
}
