// Package cli provides the interactive sync client.
//
// App is the composition root: it opens the local queue database, connects to
// the sync server, builds the operation and upload queues, and subscribes both
// to a network monitor. The REPL then lets the user enqueue document
// mutations and file uploads, inspect the queues and dead letters, force the
// network state and trigger a replay by hand.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// the process receives SIGINT/SIGTERM. See runREPL for the command list.
package cli
