// Package metrics holds the relay's prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "firstblood"

type Metrics struct {
	cycles        *prometheus.CounterVec
	fetched       prometheus.Counter
	newEvents     prometheus.Counter
	fetchErrors   *prometheus.CounterVec
	renderErrors  *prometheus.CounterVec
	sinkErrors    *prometheus.CounterVec
	ledgerSize    prometheus.Gauge
	lastSuccessTS prometheus.Gauge
	cycleDur      prometheus.Summary
}

// New builds the instruments and registers them on reg. A nil reg leaves them
// unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result",
		}, []string{"result"}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetched_events_total",
			Help:      "First-blood events returned by the backend",
		}),
		newEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_events_total",
			Help:      "Events not seen before in the ledger",
		}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Backend fetch failures by source and http status",
		}, []string{"source", "status"}),
		renderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Failed chat operations by op",
		}, []string{"op"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed sink pushes by sink",
		}, []string{"sink"}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_size",
			Help:      "Events currently held in the ledger",
		}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last cycle that fetched and persisted cleanly",
		}),
		cycleDur: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Time spent in one poll cycle",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.cycles, m.fetched, m.newEvents, m.fetchErrors, m.renderErrors,
			m.sinkErrors, m.ledgerSize, m.lastSuccessTS, m.cycleDur,
		)
	}
	return m
}

// Cycle records one finished cycle. result is ok, partial, or panic.
func (m *Metrics) Cycle(result string, took time.Duration) {
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDur.Observe(took.Seconds())
	if result == "ok" {
		m.lastSuccessTS.Set(float64(time.Now().Unix()))
	}
}

func (m *Metrics) Fetched(n int)          { m.fetched.Add(float64(n)) }
func (m *Metrics) NewEvents(n int)        { m.newEvents.Add(float64(n)) }
func (m *Metrics) LedgerSize(n int)       { m.ledgerSize.Set(float64(n)) }
func (m *Metrics) RenderError(op string) { m.renderErrors.WithLabelValues(op).Inc() }
func (m *Metrics) SinkError(name string) { m.sinkErrors.WithLabelValues(name).Inc() }

func (m *Metrics) FetchError(source, status string) {
	m.fetchErrors.WithLabelValues(source, status).Inc()
}
