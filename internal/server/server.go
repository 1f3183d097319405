// Package server serves the live interaction graph over HTTP.
//
// Routes:
//
//	GET /            auto-refreshing page showing the SVG
//	GET /graph.json  latest snapshot as JSON
//	GET /graph.svg   latest snapshot laid out with Graphviz
//	GET /graph.dot   latest snapshot as DOT source
//	GET /events      server-sent events, one "graph" event per snapshot
//	GET /health      liveness and record count
//	GET /metrics     Prometheus metrics (when configured)
//
// The server only reads snapshots from a [Latest] renderer; it never touches
// the graph being aggregated.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/render/nodelink"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Addr is the listen address, for example ":8080".
	Addr string

	// Logger receives request and lifecycle logs. Defaults to log.Default().
	Logger *log.Logger

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	// Render controls the SVG and DOT output.
	Render nodelink.Options

	// RefreshSeconds sets the reload interval of the index page. Defaults to 2.
	RefreshSeconds int
}

// Server is the HTTP live view.
type Server struct {
	latest *Latest
	opts   Options
	logger *log.Logger
	router chi.Router

	svgMu      sync.Mutex
	svgRecords int
	svg        []byte
}

// New creates a Server reading from latest.
func New(latest *Latest, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.RefreshSeconds <= 0 {
		opts.RefreshSeconds = 2
	}
	s := &Server{latest: latest, opts: opts, logger: opts.Logger, svgRecords: -1}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/graph.json", s.handleJSON)
	r.Get("/graph.svg", s.handleSVG)
	r.Get("/graph.dot", s.handleDOT)
	r.Get("/events", s.handleEvents)
	r.Get("/health", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	return r
}

// Run listens on Options.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP view listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.latest.Close()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "err", err)
		return err
	}
	s.logger.Debug("HTTP view stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="%d">
<title>livegraph</title>
<style>body{font-family:sans-serif;margin:1em;background:#fafafa}img{max-width:100%%}</style>
</head>
<body>
<p>%d records, %d nodes, %d edges</p>
<img src="/graph.svg" alt="interaction graph">
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexTemplate, s.opts.RefreshSeconds, snap.Records, snap.NodeCount(), snap.EdgeCount())
}

func (s *Server) handleJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := graph.MarshalSnapshot(s.latest.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleDOT(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(nodelink.ToDOT(s.latest.Snapshot(), s.opts.Render)))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := s.renderSVG(r.Context(), s.latest.Snapshot())
	if err != nil {
		s.logger.Error("render failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(svg)
}

// renderSVG lays out snap once per record count and reuses the result.
func (s *Server) renderSVG(ctx context.Context, snap graph.Snapshot) ([]byte, error) {
	s.svgMu.Lock()
	defer s.svgMu.Unlock()
	if s.svg != nil && s.svgRecords == snap.Records {
		return s.svg, nil
	}
	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(snap, s.opts.Render), s.opts.Render.Engine)
	if err != nil {
		return nil, err
	}
	s.svg, s.svgRecords = svg, snap.Records
	return svg, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"records": snap.Records,
		"nodes":   snap.NodeCount(),
		"edges":   snap.EdgeCount(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	ch, cancel := s.latest.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(snap graph.Snapshot) bool {
		data, err := json.Marshal(snap)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: graph\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(s.latest.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-ch:
			if !ok || !send(snap) {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
