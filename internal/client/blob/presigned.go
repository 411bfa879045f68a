// Package blob stores upload payloads in the object store behind the sync
// server, using presigned URLs issued over gRPC.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/netx"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

// Presigner issues presigned object URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, path string, metadata map[string]string) (*syncpb.PresignResponse, error)
	PresignDownload(ctx context.Context, path string) (string, error)
}

// PresignedStore implements remote.BlobStore with a presigned PUT per upload.
// An interrupted upload starts again from the first byte.
type PresignedStore struct {
	presigner Presigner
	http      *http.Client
}

var _ remote.BlobStore = (*PresignedStore)(nil)

func NewPresignedStore(p Presigner, httpClient *http.Client) *PresignedStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PresignedStore{presigner: p, http: httpClient}
}

func (s *PresignedStore) Upload(ctx context.Context, path string, r io.Reader, size int64, metadata map[string]string, progress remote.ProgressFunc) error {
	pr, err := s.presigner.PresignUpload(ctx, path, metadata)
	if err != nil {
		return fmt.Errorf("presign upload %s: %w", path, err)
	}
	if pr.Method != "" && pr.Method != http.MethodPut {
		return fmt.Errorf("presign upload %s: unsupported method %q", path, pr.Method)
	}

	headers := make(http.Header, len(pr.Headers))
	for k, v := range pr.Headers {
		headers.Set(k, v)
	}

	body := netx.NewProgressReader(r, size, netx.ProgressFunc(progress))
	if err := netx.PutPresigned(ctx, s.http, pr.URL, body, size, headers); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

func (s *PresignedStore) URL(ctx context.Context, path string) (string, error) {
	return s.presigner.PresignDownload(ctx, path)
}
