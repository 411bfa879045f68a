// Package grpc serves SyncService over gRPC, optionally over grpc-web, and
// exposes per-method Prometheus metrics.
package grpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

const shutdownTimeout = 5 * time.Second

// Presigner issues presigned object storage requests.
type Presigner interface {
	PresignPut(ctx context.Context, key string, metadata map[string]string) (*syncpb.PresignResponse, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type GRPCServer struct {
	syncpb.UnimplementedSyncServiceServer
	address        string
	webAddress     string
	metricsAddress string
	documents      remote.DocumentStore
	blobs          Presigner
	logger         logging.Logger
	jwtSecret      []byte
	metrics        *grpcprom.ServerMetrics
	registry       *prometheus.Registry
}

type Option func(*GRPCServer)

// WithGRPCWeb additionally serves grpc-web on address.
func WithGRPCWeb(address string) Option {
	return func(s *GRPCServer) { s.webAddress = address }
}

// WithMetricsAddress serves /metrics on address.
func WithMetricsAddress(address string) Option {
	return func(s *GRPCServer) { s.metricsAddress = address }
}

func NewGRPCServer(a string, l logging.Logger, docs remote.DocumentStore, blobs Presigner, secretKey string, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		documents: docs,
		blobs:     blobs,
		jwtSecret: []byte(secretKey),
		metrics: grpcprom.NewServerMetrics(
			grpcprom.WithServerHandlingTimeHistogram(),
		),
		registry: prometheus.NewRegistry(),
	}
	for _, o := range opts {
		o(s)
	}
	s.registry.MustRegister(s.metrics)
	return s
}

// Registry exposes the collectors of this server.
func (s *GRPCServer) Registry() *prometheus.Registry {
	return s.registry
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.metrics.UnaryServerInterceptor(),
		s.accessTokenInterceptor,
	))
	syncpb.RegisterSyncServiceServer(srv, s)
	s.metrics.InitializeMetrics(srv)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	var httpServers []*http.Server
	if s.webAddress != "" {
		httpServers = append(httpServers, &http.Server{Addr: s.webAddress, Handler: s.webHandler(srv)})
	}
	if s.metricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		httpServers = append(httpServers, &http.Server{Addr: s.metricsAddress, Handler: mux})
	}

	stop := make(chan struct{})
	var once sync.Once
	shutdown := func() { once.Do(func() { close(stop) }) }

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		s.logger.Info(ctx, "Stopping gRPC server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, hs := range httpServers {
			_ = hs.Shutdown(shutdownCtx)
		}
		srv.GracefulStop()
	}()

	errCh := make(chan error, len(httpServers))
	var wg sync.WaitGroup
	for _, hs := range httpServers {
		wg.Add(1)
		go func(hs *http.Server) {
			defer wg.Done()
			s.logger.Info(ctx, "Starting HTTP listener", "address", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				shutdown()
			}
		}(hs)
	}

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	err = srv.Serve(listen)
	shutdown()
	wg.Wait()

	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
