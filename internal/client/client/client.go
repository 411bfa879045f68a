package client

import (
	"context"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/syncpb"
)

// Client is the sync server API as seen by the client application.
type Client interface {
	remote.DocumentStore
	remote.ConditionalWriter

	Ping(ctx context.Context) error
	PresignUpload(ctx context.Context, path string, metadata map[string]string) (*syncpb.PresignResponse, error)
	PresignDownload(ctx context.Context, path string) (string, error)
	Close() error
}

var _ Client = (*GRPCClient)(nil)
