// Package pkg holds the libraries behind livegraph, a consumer that turns an
// append-only JSON-lines file of posts into a live author/category
// interaction graph.
//
// # Overview
//
//  1. [tail] - follows the data file and yields complete lines
//  2. [record] - decodes one line into an author and a category
//  3. [graph] - the weighted interaction graph and its snapshots
//  4. [aggregate] - applies records to the graph and triggers renders
//  5. [render] - renderers: Graphviz files, Redis, fan-out, coalescing
//
// Supporting packages: [config], [errors], [observability] and [buildinfo].
//
// # Data Flow
//
//	data/project_live.json
//	         ↓
//	    [tail] Tailer.Lines
//	         ↓
//	    [record] Decode
//	         ↓
//	    [graph] InteractionGraph.Increment
//	         ↓
//	    [render] Renderer.Render(snapshot)
//
// # Quick Start
//
//	t, err := tail.Open("data/project_live.json", tail.Options{})
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	sink, _ := nodelink.NewFileSink("graph.svg", nodelink.SinkOptions{}, logger)
//	agg := aggregate.New(graph.New(), sink, aggregate.Options{Logger: logger})
//	agg.Run(ctx, t.Lines(ctx))
//	render.Flush(ctx, sink)
//
// [tail]: github.com/matzehuels/livegraph/pkg/tail
// [record]: github.com/matzehuels/livegraph/pkg/record
// [graph]: github.com/matzehuels/livegraph/pkg/graph
// [aggregate]: github.com/matzehuels/livegraph/pkg/aggregate
// [render]: github.com/matzehuels/livegraph/pkg/render
// [config]: github.com/matzehuels/livegraph/pkg/config
// [errors]: github.com/matzehuels/livegraph/pkg/errors
// [observability]: github.com/matzehuels/livegraph/pkg/observability
// [buildinfo]: github.com/matzehuels/livegraph/pkg/buildinfo
package pkg
