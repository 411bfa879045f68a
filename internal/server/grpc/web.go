package grpc

import (
	"net/http"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"github.com/rs/cors"
	"google.golang.org/grpc"
)

// webHandler serves grpc-web requests for srv. Browsers reach it cross-origin,
// so CORS preflights are answered before the grpc-web wrapper sees them.
func (s *GRPCServer) webHandler(srv *grpc.Server) http.Handler {
	wrapped := grpcweb.WrapServer(srv,
		grpcweb.WithOriginFunc(func(string) bool { return true }),
	)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wrapped.IsGrpcWebRequest(r) {
			wrapped.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"grpc-status", "grpc-message"},
	}).Handler(h)
}
