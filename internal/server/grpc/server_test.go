package grpc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/common"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/server/auth"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

func startBufServer(t *testing.T, s *GRPCServer) syncpb.SyncServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := s.newServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return syncpb.NewSyncServiceClient(conn)
}

func counterValue(t *testing.T, s *GRPCServer, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := s.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	n := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			n++
		}
	}
	return n == len(want)
}

func TestServer_EndToEnd(t *testing.T) {
	s := newServer(newMemStore(), nil)
	client := startBufServer(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx, &emptypb.Empty{})
	require.NoError(t, err)

	req, err := (&syncpb.OperationRequest{
		Collection: "lessons", ID: "l1", Kind: "create",
		Payload: map[string]any{"title": "Fractions"}, Timestamp: 1700000000000,
	}).Struct()
	require.NoError(t, err)

	_, err = client.ApplyOperation(ctx, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := auth.GenerateToken("device-1", []byte(testSecret), time.Minute)
	require.NoError(t, err)
	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, token)

	resp, err := client.ApplyOperation(authed, req)
	require.NoError(t, err)
	assert.Equal(t, "applied", syncpb.ParseOutcome(resp))

	get, err := (&syncpb.DocumentRequest{Collection: "lessons", ID: "l1"}).Struct()
	require.NoError(t, err)
	doc, err := client.GetDocument(authed, get)
	require.NoError(t, err)
	assert.Equal(t, "Fractions", doc.AsMap()["title"])
	assert.Equal(t, float64(1700000000000), doc.AsMap()[common.TimestampField])

	assert.Equal(t, 1.0, counterValue(t, s, "grpc_server_handled_total", map[string]string{
		"grpc_method": "ApplyOperation", "grpc_code": "OK",
	}))
	assert.Equal(t, 1.0, counterValue(t, s, "grpc_server_handled_total", map[string]string{
		"grpc_method": "ApplyOperation", "grpc_code": "Unauthenticated",
	}))
	// pre-registered by InitializeMetrics
	assert.Equal(t, 0.0, counterValue(t, s, "grpc_server_handled_total", map[string]string{
		"grpc_method": "PresignUpload", "grpc_code": "OK",
	}))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", logging.Nop(), newMemStore(), nil, testSecret,
		WithMetricsAddress("127.0.0.1:0"), WithGRPCWeb("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunListenError(t *testing.T) {
	s := newServer(newMemStore(), nil)
	s.address = "256.0.0.1:bad"
	assert.Error(t, s.Run(context.Background()))
}

func TestWebHandler(t *testing.T) {
	s := newServer(newMemStore(), nil)
	h := s.webHandler(s.newServer())

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, syncpb.SyncService_Ping_FullMethodName, nil)
		req.Header.Set("Origin", "http://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,x-grpc-web")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("grpc-web ping", func(t *testing.T) {
		// one uncompressed frame carrying an empty message
		body := strings.NewReader(string([]byte{0, 0, 0, 0, 0}))
		req := httptest.NewRequest(http.MethodPost, syncpb.SyncService_Ping_FullMethodName, body)
		req.Header.Set("Content-Type", "application/grpc-web+proto")
		req.Header.Set("Origin", "http://app.example")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/grpc-web"))
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("plain request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
