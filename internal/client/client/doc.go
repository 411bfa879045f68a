// Package client connects the offline queues to the sync server.
//
// GRPCClient implements remote.DocumentStore and remote.ConditionalWriter
// over the tutorsim.sync.v1.SyncService API and also exposes the presign
// calls used by the blob store. Every call carries the configured access
// token in the "access_token" metadata key.
//
// gRPC status codes are mapped to package errors:
//
//   - Unauthenticated, PermissionDenied -> ErrUnauthorized
//   - Unavailable, DeadlineExceeded     -> ErrUnavailable
//   - NotFound                          -> common.ErrNotFound
//
// The package also opens the local SQLite database and applies its
// migrations (InitDatabase).
package client
