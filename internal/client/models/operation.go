// Package models defines the client-side records kept by the offline queues.
package models

import (
	"github.com/CheonhoPark-dev/tutorsim-sync/internal/remote"
)

// PendingOperation is a queued document mutation awaiting replay.
type PendingOperation struct {
	// ID is a unique, client-generated identifier.
	ID string

	Collection string
	DocumentID string
	Kind       remote.Kind

	// Payload holds the fields for create and update; nil for delete.
	Payload map[string]any

	// EnqueuedAt is the enqueue time in Unix milliseconds. It orders the queue
	// and is compared against the remote document timestamp.
	EnqueuedAt int64

	// Attempts counts failed replay attempts.
	Attempts int
	// LastError is the message of the most recent failed attempt.
	LastError string
}

// Mutation converts the operation into the remote write it stands for.
func (o *PendingOperation) Mutation() remote.Mutation {
	return remote.Mutation{
		Collection: o.Collection,
		DocumentID: o.DocumentID,
		Kind:       o.Kind,
		Payload:    o.Payload,
		Timestamp:  o.EnqueuedAt,
	}
}

// DeadOperation is an operation that exhausted its retry budget.
type DeadOperation struct {
	PendingOperation
	// DeadAt is when the operation was moved out of the live queue (Unix ms).
	DeadAt int64
}
