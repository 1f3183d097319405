// Package aggregate folds decoded records into an interaction graph.
//
// An [Aggregator] owns one [graph.InteractionGraph]. For every line it
// decodes the record, increments the author/category edge and hands a
// snapshot of the graph to a renderer. Bad input never changes the graph:
// malformed lines and records of the wrong shape are logged and skipped.
//
//	agg := aggregate.New(graph.New(), sink, aggregate.Options{Logger: logger})
//	stats := agg.Run(ctx, tailer.Lines(ctx))
//
// An Aggregator is the single writer of its graph and is not safe for
// concurrent use. Renderers only ever see immutable snapshots.
package aggregate

import (
	"context"
	"fmt"
	"iter"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
	"github.com/matzehuels/livegraph/pkg/record"
	"github.com/matzehuels/livegraph/pkg/render"
)

// Node key prefixes used when Options.TagKinds is set.
const (
	AuthorPrefix   = "author:"
	CategoryPrefix = "category:"
)

// Outcome describes what Process did with a line.
type Outcome int

const (
	// Applied means the record incremented an edge and was rendered.
	Applied Outcome = iota
	// Ignored means the line was valid JSON but not an object.
	Ignored
	// Malformed means the line was not valid JSON.
	Malformed
	// Failed means the record had an unexpected shape or processing panicked.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Ignored:
		return "ignored"
	case Malformed:
		return "malformed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Stats counts line outcomes.
type Stats struct {
	Applied   int
	Ignored   int
	Malformed int
	Failed    int
}

// Total returns the number of lines processed.
func (s Stats) Total() int { return s.Applied + s.Ignored + s.Malformed + s.Failed }

func (s *Stats) add(o Outcome) {
	switch o {
	case Applied:
		s.Applied++
	case Ignored:
		s.Ignored++
	case Malformed:
		s.Malformed++
	case Failed:
		s.Failed++
	}
}

// Options configures an Aggregator.
type Options struct {
	// Logger receives per-record and error logs. Defaults to log.Default().
	Logger *log.Logger

	// TagKinds keeps authors and categories in separate namespaces by
	// prefixing node keys with AuthorPrefix and CategoryPrefix.
	TagKinds bool

	// RenderEvery renders after every Nth applied record. Defaults to 1.
	// Run renders the final graph when its sequence ends.
	RenderEvery int
}

// Aggregator applies records to a graph and renders the result.
type Aggregator struct {
	g      *graph.InteractionGraph
	r      render.Renderer
	opts   Options
	logger *log.Logger

	stats   Stats
	pending bool // applied records not yet rendered
}

// New creates an Aggregator writing to g and rendering to r.
// A nil renderer renders nothing.
func New(g *graph.InteractionGraph, r render.Renderer, opts Options) *Aggregator {
	if r == nil {
		r = render.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.RenderEvery < 1 {
		opts.RenderEvery = 1
	}
	return &Aggregator{g: g, r: r, opts: opts, logger: opts.Logger}
}

// Graph returns the graph being aggregated.
func (a *Aggregator) Graph() *graph.InteractionGraph { return a.g }

// Stats returns the outcome counters so far.
func (a *Aggregator) Stats() Stats { return a.stats }

// Process handles one line. It never panics and never returns an error:
// the outcome reports what happened and bad input leaves the graph as it was.
func (a *Aggregator) Process(ctx context.Context, line string) (out Outcome) {
	hooks := observability.Ingest()
	defer func() {
		if p := recover(); p != nil {
			err := errors.New(errors.ErrCodeProcessing, "unexpected error processing record: %v", p)
			a.logger.Error(errors.UserMessage(err), "line", line)
			hooks.OnFailed(ctx)
			out = Failed
		}
		a.stats.add(out)
	}()

	rec, ok, err := record.Decode(line)
	switch {
	case errors.Is(err, errors.ErrCodeMalformedRecord):
		a.logger.Error("invalid JSON message", "line", line)
		hooks.OnMalformed(ctx)
		return Malformed
	case err != nil:
		a.logger.Error("failed to process record", "err", errors.UserMessage(err), "line", line)
		hooks.OnFailed(ctx)
		return Failed
	case !ok:
		a.logger.Debug("ignoring non-object record", "line", line)
		hooks.OnIgnored(ctx)
		return Ignored
	}

	author, category := a.keys(rec)
	if !a.g.HasEdge(author, category) {
		a.logger.Debug("new interaction", "author", author, "category", category)
	}
	weight := a.g.Increment(author, category)

	a.logger.Info(fmt.Sprintf("%s posted in category: %s", rec.Author, rec.Category),
		"author", rec.Author, "category", rec.Category, "weight", weight)
	hooks.OnRecord(ctx, author, category, weight)

	a.pending = true
	if (a.stats.Applied+1)%a.opts.RenderEvery == 0 {
		a.render(ctx)
	}
	return Applied
}

func (a *Aggregator) keys(rec record.Record) (string, string) {
	if a.opts.TagKinds {
		return AuthorPrefix + rec.Author, CategoryPrefix + rec.Category
	}
	return rec.Author, rec.Category
}

func (a *Aggregator) render(ctx context.Context) {
	a.pending = false
	a.r.Render(ctx, a.g.Snapshot())
}

// Run processes every line of lines in order until the sequence ends, then
// renders any applied records that RenderEvery held back.
func (a *Aggregator) Run(ctx context.Context, lines iter.Seq[string]) Stats {
	for line := range lines {
		a.Process(ctx, line)
	}
	a.Sync(ctx)
	return a.stats
}

// Sync renders the graph if records were applied since the last render.
func (a *Aggregator) Sync(ctx context.Context) {
	if !a.pending {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("unexpected error rendering graph", "panic", p)
		}
	}()
	a.render(ctx)
}
