// Package queue implements the two offline queues of the client.
//
// OperationQueue holds document mutations made while offline and replays them
// in enqueue order when the network comes back. Each replay is checked against
// the remote copy: when the remote document carries a newer timestamp the
// local mutation is dropped (last writer wins, ties go to the local write).
//
// UploadQueue holds blob uploads and sends them one at a time, always the
// head of the queue first.
//
// Both queues mirror their contents to a repository after every change, so a
// restarted process picks up where the previous one stopped. Failed items are
// retried with exponential backoff and, when a RetryPolicy limits attempts,
// moved to a dead-letter table once the budget is spent.
//
// Queues are plain values owned by the caller; there is no package state.
// OnNetworkChange is the only input from the connectivity monitor.
package queue
