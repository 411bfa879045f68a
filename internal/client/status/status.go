// Package status serves the client's local sync status over HTTP so a UI can
// show the pending indicator, plus Prometheus metrics.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
)

// Snapshot is the body of GET /status.
type Snapshot struct {
	Online            bool `json:"online"`
	Syncing           bool `json:"syncing"`
	Uploading         bool `json:"uploading"`
	PendingOperations int  `json:"pending_operations"`
	PendingUploads    int  `json:"pending_uploads"`
	DeadOperations    int  `json:"dead_operations"`
	DeadUploads       int  `json:"dead_uploads"`
}

// Reporter produces the current snapshot.
type Reporter interface {
	Status(ctx context.Context) Snapshot
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, r Reporter, g prometheus.Gatherer, l logging.Logger) *Server {
	return &Server{address: address, handler: NewRouter(r, g), logger: l.With("module", "status_server")}
}

// NewRouter builds the status routes. g may be nil to omit /metrics.
func NewRouter(r Reporter, g prometheus.Gatherer) *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Status(c.Request.Context()))
	})
	if g != nil {
		e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
	return e
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping status server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting status server", "address", s.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
