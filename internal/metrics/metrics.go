// Package metrics holds the Prometheus collectors exported by the client queues.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Item outcomes recorded by Queue.Observe.
const (
	ResultApplied = "applied"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
	ResultDead    = "dead"
)

// Queue is the collector set of one queue. A nil *Queue records nothing.
type Queue struct {
	pending   prometheus.Gauge
	dead      prometheus.Gauge
	processed *prometheus.CounterVec
}

// NewQueue creates and registers the collectors for the queue called name
// (for example "operations" or "uploads").
func NewQueue(reg prometheus.Registerer, name string) *Queue {
	labels := prometheus.Labels{"queue": name}
	q := &Queue{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tutorsim",
			Subsystem:   "sync",
			Name:        "queue_pending",
			Help:        "Items waiting in the queue.",
			ConstLabels: labels,
		}),
		dead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "tutorsim",
			Subsystem:   "sync",
			Name:        "queue_dead_letters",
			Help:        "Items moved to the dead-letter table during this run.",
			ConstLabels: labels,
		}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "tutorsim",
			Subsystem:   "sync",
			Name:        "queue_items_total",
			Help:        "Processed queue items by result.",
			ConstLabels: labels,
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(q.pending, q.dead, q.processed)
	}
	return q
}

func (q *Queue) SetPending(n int) {
	if q == nil {
		return
	}
	q.pending.Set(float64(n))
}

func (q *Queue) AddDead() {
	if q == nil {
		return
	}
	q.dead.Inc()
}

func (q *Queue) Observe(result string) {
	if q == nil {
		return
	}
	q.processed.WithLabelValues(result).Inc()
}
