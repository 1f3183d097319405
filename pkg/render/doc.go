// Package render defines how interaction graph snapshots reach a viewer.
//
// # Overview
//
// A [Renderer] receives an immutable [graph.Snapshot] after every applied
// record and draws it somewhere: an SVG file, a terminal, an HTTP endpoint,
// a Redis channel. Renderers have no error contract; failures are logged
// and reported through observability hooks, never returned to the ingest
// loop.
//
// Renderers that hold state to finish at shutdown (a final SVG write, a
// queued snapshot) implement [Flusher]; call [Flush] during teardown.
//
// # Composition
//
//	r := render.Multi(svgSink, tui, latest)
//	r = render.Instrument("all", r)
//
// # Decoupling
//
// By default renderers run synchronously on the ingest loop, so render time
// is pure overhead on tailing. [Coalesce] moves a renderer to its own
// goroutine behind a one-slot queue where the latest snapshot wins:
//
//	c := render.Coalesce(svgSink, logger)
//	defer c.Close()
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
// Subpackages:
//   - [nodelink]: Graphviz layout and SVG drawing
//   - [redis]: snapshot publishing to Redis
//
// [nodelink]: github.com/matzehuels/livegraph/pkg/render/nodelink
// [redis]: github.com/matzehuels/livegraph/pkg/render/redis
package render
