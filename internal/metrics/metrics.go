// Package metrics exports livegraph activity as Prometheus metrics.
//
// Metrics implements the tail, ingest and render hook interfaces from
// pkg/observability. Register it once at startup:
//
//	m := metrics.New()
//	m.Register()
//	http.Handle("/metrics", m.Handler())
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/livegraph/pkg/observability"
)

const namespace = "livegraph"

// Record outcomes used as the "outcome" label.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	lines       prometheus.Counter
	bytes       prometheus.Counter
	truncations prometheus.Counter
	rotations   prometheus.Counter

	records    *prometheus.CounterVec
	edgeWeight prometheus.Histogram

	renderDuration *prometheus.HistogramVec
	renderErrors   *prometheus.CounterVec
	coalesced      prometheus.Counter
	nodes          prometheus.Gauge
	edges          prometheus.Gauge
}

// New creates a Metrics with its own registry, which also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		lines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tail", Name: "lines_total",
			Help: "Complete lines read from the data file",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tail", Name: "bytes_total",
			Help: "Bytes of complete lines read from the data file",
		}),
		truncations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tail", Name: "truncations_total",
			Help: "Times the data file shrank below the read offset",
		}),
		rotations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tail", Name: "rotations_total",
			Help: "Times the data file path was replaced by a new file",
		}),

		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "records_total",
			Help: "Lines processed by outcome",
		}, []string{"outcome"}),
		edgeWeight: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "edge_weight",
			Help:    "Edge weight after each applied record",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "render", Name: "duration_seconds",
			Help:    "Render duration by renderer",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"renderer"}),
		renderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "render", Name: "errors_total",
			Help: "Failed renders by renderer",
		}, []string{"renderer"}),
		coalesced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "render", Name: "coalesced_total",
			Help: "Snapshots replaced before they were rendered",
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "nodes",
			Help: "Nodes in the most recently rendered snapshot",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: "edges",
			Help: "Edges in the most recently rendered snapshot",
		}),
	}
}

// Register installs m as the tail, ingest and render hooks.
func (m *Metrics) Register() {
	observability.SetTailHooks(m)
	observability.SetIngestHooks(m)
	observability.SetRenderHooks(m)
}

// Registry returns the registry holding m's collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves m's registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// =============================================================================
// Tail hooks
// =============================================================================

func (m *Metrics) OnLine(_ context.Context, _ string, size int) {
	m.lines.Inc()
	m.bytes.Add(float64(size))
}

func (m *Metrics) OnTruncate(context.Context, string) { m.truncations.Inc() }

func (m *Metrics) OnRotate(context.Context, string) { m.rotations.Inc() }

// =============================================================================
// Ingest hooks
// =============================================================================

func (m *Metrics) OnRecord(_ context.Context, _, _ string, weight int) {
	m.records.WithLabelValues(OutcomeApplied).Inc()
	m.edgeWeight.Observe(float64(weight))
}

func (m *Metrics) OnMalformed(context.Context) { m.records.WithLabelValues(OutcomeMalformed).Inc() }

func (m *Metrics) OnFailed(context.Context) { m.records.WithLabelValues(OutcomeFailed).Inc() }

func (m *Metrics) OnIgnored(context.Context) { m.records.WithLabelValues(OutcomeIgnored).Inc() }

// =============================================================================
// Render hooks
// =============================================================================

func (m *Metrics) OnRender(_ context.Context, renderer string, nodes, edges int, d time.Duration, err error) {
	m.renderDuration.WithLabelValues(renderer).Observe(d.Seconds())
	if err != nil {
		m.renderErrors.WithLabelValues(renderer).Inc()
		return
	}
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
}

func (m *Metrics) OnCoalesce(_ context.Context, dropped int) { m.coalesced.Add(float64(dropped)) }

var (
	_ observability.TailHooks   = (*Metrics)(nil)
	_ observability.IngestHooks = (*Metrics)(nil)
	_ observability.RenderHooks = (*Metrics)(nil)
)
