package render

import (
	"context"
	"time"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
)

// Renderer draws a graph snapshot. Render must not retain s beyond the call
// unless it treats it as read-only; snapshots are shared between renderers.
type Renderer interface {
	Render(ctx context.Context, s graph.Snapshot)
}

// Flusher is implemented by renderers that have work to finish at shutdown.
type Flusher interface {
	Flush(ctx context.Context)
}

// Func adapts a function to the Renderer interface.
type Func func(ctx context.Context, s graph.Snapshot)

// Render calls f(ctx, s).
func (f Func) Render(ctx context.Context, s graph.Snapshot) { f(ctx, s) }

// Nop is a Renderer that draws nothing.
type Nop struct{}

// Render does nothing.
func (Nop) Render(context.Context, graph.Snapshot) {}

// Flush calls r.Flush if r implements Flusher.
func Flush(ctx context.Context, r Renderer) {
	if f, ok := r.(Flusher); ok {
		f.Flush(ctx)
	}
}

// =============================================================================
// Multi
// =============================================================================

type multi []Renderer

// Multi returns a Renderer that renders to each of rs in order.
// Nil renderers are skipped. Flush is forwarded to every member.
func Multi(rs ...Renderer) Renderer {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) Render(ctx context.Context, s graph.Snapshot) {
	for _, r := range m {
		r.Render(ctx, s)
	}
}

func (m multi) Flush(ctx context.Context) {
	for _, r := range m {
		Flush(ctx, r)
	}
}

// =============================================================================
// Instrument
// =============================================================================

type instrumented struct {
	name string
	next Renderer
}

// Instrument wraps r so that every render is reported to the registered
// render hooks under name.
func Instrument(name string, r Renderer) Renderer {
	return &instrumented{name: name, next: r}
}

func (i *instrumented) Render(ctx context.Context, s graph.Snapshot) {
	start := time.Now()
	i.next.Render(ctx, s)
	observability.Render().OnRender(ctx, i.name, s.NodeCount(), s.EdgeCount(), time.Since(start), nil)
}

func (i *instrumented) Flush(ctx context.Context) { Flush(ctx, i.next) }
