package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/livegraph/pkg/observability"
)

func TestHooksUpdateMetrics(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnLine(ctx, "data.json", 40)
	m.OnLine(ctx, "data.json", 2)
	m.OnTruncate(ctx, "data.json")
	m.OnRecord(ctx, "Eve", "Bob", 1)
	m.OnRecord(ctx, "Eve", "Bob", 2)
	m.OnMalformed(ctx)
	m.OnIgnored(ctx)
	m.OnRender(ctx, "file:svg", 2, 1, time.Millisecond, nil)
	m.OnRender(ctx, "redis", 9, 9, time.Millisecond, errors.New("down"))
	m.OnCoalesce(ctx, 3)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"lines", m.lines, 2},
		{"bytes", m.bytes, 42},
		{"truncations", m.truncations, 1},
		{"rotations", m.rotations, 0},
		{"applied", m.records.WithLabelValues(OutcomeApplied), 2},
		{"malformed", m.records.WithLabelValues(OutcomeMalformed), 1},
		{"ignored", m.records.WithLabelValues(OutcomeIgnored), 1},
		{"failed", m.records.WithLabelValues(OutcomeFailed), 0},
		{"render errors", m.renderErrors.WithLabelValues("redis"), 1},
		{"coalesced", m.coalesced, 3},
		{"nodes", m.nodes, 2},
		{"edges", m.edges, 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New()
	m.Register()

	observability.Ingest().OnMalformed(context.Background())
	if got := testutil.ToFloat64(m.records.WithLabelValues(OutcomeMalformed)); got != 1 {
		t.Errorf("malformed via registered hooks = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.OnRecord(context.Background(), "Eve", "Bob", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`livegraph_ingest_records_total{outcome="applied"} 1`,
		"livegraph_ingest_edge_weight_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
