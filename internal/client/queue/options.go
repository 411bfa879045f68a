package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/metrics"
)

type settings struct {
	policy  RetryPolicy
	metrics *metrics.Queue
	now     func() time.Time
	newID   func() string
}

func defaultSettings() settings {
	return settings{
		policy: DefaultRetryPolicy(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Option customizes a queue.
type Option func(*settings)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *settings) { s.policy = p }
}

func WithMetrics(m *metrics.Queue) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for item ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *settings) { s.newID = fn }
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	return s
}
