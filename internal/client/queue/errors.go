package queue

import "errors"

var (
	ErrClosed = errors.New("queue is closed")
	// ErrFileMissing is recorded when the file behind an upload is gone; such
	// uploads are dead-lettered without further attempts.
	ErrFileMissing = errors.New("upload source file is missing")
)
