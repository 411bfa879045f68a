package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/blob"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/client"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/config"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/netmon"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/queue"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/client/status"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/metrics"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	api      client.Client
	ops      *queue.OperationQueue
	uploads  *queue.UploadQueue
	monitor  *netmon.Monitor
	registry *prometheus.Registry
	in       io.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewText(os.Stderr, c.LogLevel)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	repos := client.NewRepositories(db)
	reg := prometheus.NewRegistry()
	policy := queue.RetryPolicy{
		MaxAttempts:     c.Retry.MaxAttempts,
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
	}

	ops := queue.NewOperationQueue(api, repos.Operations, logger,
		queue.WithRetryPolicy(policy), queue.WithMetrics(metrics.NewQueue(reg, "operations")))
	uploads := queue.NewUploadQueue(blob.NewPresignedStore(api, nil), repos.Uploads, logger,
		queue.WithRetryPolicy(policy), queue.WithMetrics(metrics.NewQueue(reg, "uploads")))

	a := &App{
		config:   c,
		logger:   logger,
		db:       db,
		api:      api,
		ops:      ops,
		uploads:  uploads,
		monitor:  netmon.New(api, c.OnlineCheckInterval, pingTimeout, logger),
		registry: reg,
		in:       os.Stdin,
	}
	a.subscribe()
	return a, nil
}

// subscribe wires both queues to the network monitor.
func (a *App) subscribe() {
	a.monitor.Subscribe(a.ops.OnNetworkChange)
	a.monitor.Subscribe(a.uploads.OnNetworkChange)
	a.monitor.Subscribe(a.setMode)
}

func (a *App) setMode(online bool) {
	mode := ModeOffline
	if online {
		mode = ModeOnline
	}
	printlnFn(fmt.Sprintf("Switched to %s mode", mode))
}

func (a *App) mode() Mode {
	if a.monitor.Online() {
		return ModeOnline
	}
	return ModeOffline
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run loads the persisted queues, starts the monitor and the status endpoint,
// and serves the REPL until exit.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.initSignalHandler(cancel)
	defer a.close()

	if err := a.ops.Initialize(ctx); err != nil {
		return err
	}
	if err := a.uploads.Initialize(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.monitor.Run(ctx)
	}()

	if a.config.StatusAddr != "" {
		srv := status.NewServer(a.config.StatusAddr, a, a.registry, a.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				a.logger.Error(ctx, "status server failed", "error", err)
			}
		}()
	}

	printlnFn("TutorSim sync client (type 'help' for commands)")

	done := make(chan struct{})
	go func() {
		defer close(done)
		runREPL(ctx, a, a.prompt, bufio.NewScanner(a.in))
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
	return nil
}

func (a *App) prompt() string {
	if !isInteractive() {
		return ""
	}
	return fmt.Sprintf("tutorsim (%s, %d pending)> ", a.mode(), a.ops.PendingCount()+a.uploads.QueueLength())
}

func (a *App) close() {
	a.ops.Close()
	a.uploads.Close()
	var errs []error
	if a.api != nil {
		errs = append(errs, a.api.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn(context.Background(), "shutdown", "error", err)
	}
}

// Status implements status.Reporter.
func (a *App) Status(ctx context.Context) status.Snapshot {
	s := status.Snapshot{
		Online:            a.monitor.Online(),
		Syncing:           a.ops.Syncing(),
		Uploading:         a.uploads.Uploading(),
		PendingOperations: a.ops.PendingCount(),
		PendingUploads:    a.uploads.QueueLength(),
	}
	if dead, err := a.ops.DeadLetters(ctx); err == nil {
		s.DeadOperations = len(dead)
	} else {
		a.logger.Warn(ctx, "failed to count dead operations", "error", err)
	}
	if dead, err := a.uploads.DeadLetters(ctx); err == nil {
		s.DeadUploads = len(dead)
	} else {
		a.logger.Warn(ctx, "failed to count dead uploads", "error", err)
	}
	return s
}
