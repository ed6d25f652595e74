package feed

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch results used as the "result" label.
const (
	resultOK      = "ok"
	resultCached  = "cached"
	resultError   = "error"
	resultInvalid = "invalid"
	resultStale   = "stale"
)

// Metrics records poller activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	parseDuration prometheus.Histogram
	version       prometheus.Gauge
	events        prometheus.Gauge
}

// NewMetrics creates the poller metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icalfeed",
			Name:      "fetches_total",
			Help:      "Calendar fetch cycles by result.",
		}, []string{"result"}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "icalfeed",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing and filtering a calendar body.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "icalfeed",
			Name:      "cache_version",
			Help:      "Current version of the published event list.",
		}),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "icalfeed",
			Name:      "cache_events",
			Help:      "Number of events in the published list.",
		}),
	}
	for _, c := range []prometheus.Collector{m.fetches, m.parseDuration, m.version, m.events} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) fetch(result string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) parsed(d time.Duration) {
	if m == nil {
		return
	}
	m.parseDuration.Observe(d.Seconds())
}

func (m *Metrics) published(version uint64, events int) {
	if m == nil {
		return
	}
	m.version.Set(float64(version))
	m.events.Set(float64(events))
}
