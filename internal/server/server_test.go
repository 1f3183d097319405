package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/graph"
)

func newTestServer(t *testing.T, metrics http.Handler) (*Latest, *httptest.Server) {
	t.Helper()
	latest := NewLatest()
	srv := New(latest, Options{Logger: log.New(io.Discard), Metrics: metrics})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		latest.Close()
		ts.Close()
	})
	return latest, ts
}

func eveBob(n int) graph.Snapshot {
	g := graph.New()
	for range n {
		g.Increment("Eve", "Bob")
	}
	return g.Snapshot()
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestRoutes(t *testing.T) {
	latest, ts := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics here"))
	}))
	latest.Render(context.Background(), eveBob(2))

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/graph.json", "application/json", `"weight": 2`},
		{"/graph.dot", "text/vnd.graphviz", `n0 -- n1`},
		{"/health", "application/json", `"records":2`},
		{"/metrics", "", "metrics here"},
		{"/", "text/html", "2 records, 2 nodes, 1 edges"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want prefix %q", ct, tt.contentType)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, body)
			}
		})
	}
}

func TestGraphJSONEmpty(t *testing.T) {
	_, ts := newTestServer(t, nil)
	_, body := get(t, ts.URL+"/graph.json")

	s, err := graph.UnmarshalSnapshot([]byte(body))
	if err != nil {
		t.Fatalf("UnmarshalSnapshot() error: %v", err)
	}
	if !s.IsEmpty() {
		t.Errorf("initial snapshot = %+v, want empty", s)
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, _ := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404 when metrics are disabled", resp.StatusCode)
	}
}

func TestGraphSVG(t *testing.T) {
	latest, ts := newTestServer(t, nil)
	latest.Render(context.Background(), eveBob(1))

	resp, body := get(t, ts.URL+"/graph.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "<svg") {
		t.Error("/graph.svg body missing <svg>")
	}
}

func TestEvents(t *testing.T) {
	latest, ts := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	next := func() graph.Snapshot {
		t.Helper()
		for sc.Scan() {
			line := sc.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var s graph.Snapshot
				if err := json.Unmarshal([]byte(data), &s); err != nil {
					t.Fatalf("bad event data %q: %v", data, err)
				}
				return s
			}
		}
		t.Fatalf("event stream ended: %v", sc.Err())
		return graph.Snapshot{}
	}

	if first := next(); first.Records != 0 {
		t.Errorf("first event records = %d, want 0", first.Records)
	}

	for latest.Subscribers() == 0 {
		time.Sleep(time.Millisecond)
	}
	latest.Render(context.Background(), eveBob(3))
	if got := next(); got.Records != 3 {
		t.Errorf("second event records = %d, want 3", got.Records)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := New(NewLatest(), Options{Addr: "127.0.0.1:0", Logger: log.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestLatestSubscribe(t *testing.T) {
	l := NewLatest()
	ch, cancel := l.Subscribe()

	l.Render(context.Background(), eveBob(1))
	l.Render(context.Background(), eveBob(2))
	if got := <-ch; got.Records != 2 {
		t.Errorf("subscriber got records %d, want latest 2", got.Records)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel open after cancel")
	}
	if l.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", l.Subscribers())
	}

	ch2, _ := l.Subscribe()
	l.Flush(context.Background())
	if _, ok := <-ch2; ok {
		t.Error("channel open after Flush")
	}
	ch3, _ := l.Subscribe()
	if _, ok := <-ch3; ok {
		t.Error("Subscribe after Close returned an open channel")
	}
	if l.Snapshot().Records != 2 {
		t.Errorf("Snapshot().Records = %d, want 2", l.Snapshot().Records)
	}
}
