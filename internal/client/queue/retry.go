package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how failed items are retried.
type RetryPolicy struct {
	// MaxAttempts is the number of failed attempts after which an item is
	// dead-lettered. Zero retries forever.
	MaxAttempts int
	// InitialInterval is the wait after the first failure. Zero disables
	// timed retries; the item is then retried on the next trigger only.
	InitialInterval time.Duration
	// MaxInterval caps the exponential growth of the wait.
	MaxInterval time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     10,
		InitialInterval: 2 * time.Second,
		MaxInterval:     5 * time.Minute,
	}
}

// Exhausted reports whether an item with the given failed attempts must be dead-lettered.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// Delay returns the wait before the next attempt of an item that failed
// attempts times. The first failure waits InitialInterval, each further one
// doubles it up to MaxInterval.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts <= 0 || p.InitialInterval <= 0 {
		return 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for range attempts {
		d = b.NextBackOff()
	}
	return d
}

// wakeup runs a function once after a delay. Scheduling again replaces the
// pending call.
type wakeup struct {
	timer   *time.Timer
	stopped bool
}

// schedule must be called with the owning queue's mutex held.
func (w *wakeup) schedule(d time.Duration, fn func()) {
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, fn)
}

func (w *wakeup) cancel() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *wakeup) stop() {
	w.cancel()
	w.stopped = true
}
