// Package remote defines the contracts between the offline queues and the
// remote side: a structured document store, an optional native conditional
// writer, and a blob store.
//
// Documents carry their last writer's logical timestamp in the "timestamp"
// field. A mutation is skipped when the stored document is strictly newer
// than the mutation (last-writer-wins in favour of the server).
//
// Implementations:
//
//   - client.GRPCClient: talks to the sync server (DocumentStore, ConditionalWriter)
//   - documents.PostgresStore: server-side store (DocumentStore, ConditionalWriter)
//   - blob.PresignedStore: presigned-URL uploads (BlobStore)
package remote
