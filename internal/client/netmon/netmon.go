// Package netmon turns periodic liveness probes against the sync server into
// an online/offline signal.
//
// Subscribers are called only when the state changes. The first probe always
// counts as a change, so every subscriber learns the initial state.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/CheonhoPark-dev/tutorsim-sync/internal/logging"
)

// Pinger checks that the remote side is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor probes a Pinger on a fixed interval.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	mu          sync.Mutex
	online      bool
	known       bool
	manual      bool
	subscribers []func(online bool)
}

func New(p Pinger, interval, timeout time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		pinger:   p,
		interval: interval,
		timeout:  timeout,
		log:      log.With("module", "netmon"),
	}
}

// Subscribe registers fn for state changes. fn runs on the monitor's goroutine
// and must not block for long.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Online returns the last known state; false before the first probe.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe pings once and publishes the result. It does nothing while a manual
// state is set.
func (m *Monitor) Probe(ctx context.Context) {
	m.mu.Lock()
	manual := m.manual
	m.mu.Unlock()
	if manual {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Debug(ctx, "ping failed", "error", err)
	}
	m.set(ctx, err == nil, true)
}

// SetOnline forces a state and stops probing from overriding it until
// ClearOverride is called.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	m.manual = true
	m.mu.Unlock()
	m.set(context.Background(), online, false)
}

// ClearOverride resumes probe-driven state.
func (m *Monitor) ClearOverride() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manual = false
}

// set publishes online. A probed result is dropped when a manual state was
// set while the ping was in flight.
func (m *Monitor) set(ctx context.Context, online, probed bool) {
	m.mu.Lock()
	if (probed && m.manual) || (m.known && m.online == online) {
		m.mu.Unlock()
		return
	}
	m.known = true
	m.online = online
	subs := append([]func(bool){}, m.subscribers...)
	m.mu.Unlock()

	if online {
		m.log.Info(ctx, "switched to online mode")
	} else {
		m.log.Info(ctx, "switched to offline mode")
	}
	for _, fn := range subs {
		fn(online)
	}
}
