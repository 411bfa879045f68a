// Package operations persists the pending-operation queue and its dead letters.
//
// The live queue is stored as a whole: ReplaceAll clears the sync_operations
// table and writes the given list in order inside one transaction, so a crash
// never leaves a half-written queue behind. GetAll returns the list in the
// order it was written.
//
// Operations that exhausted their retry budget live in sync_operations_dead
// until the caller requeues or discards them.
package operations
