// Package nodelink renders interaction graphs as node-link diagrams.
//
// # Overview
//
// This package produces undirected graph visualizations using Graphviz:
// authors and categories appear as labelled nodes, and each edge is
// annotated with its weight. The layout is recomputed from scratch on every
// render, so the picture follows the graph as it grows.
//
// # Usage
//
// Convert a snapshot to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(s, nodelink.Options{Title: "Author Interaction Network"})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineNeato)
//
// For live output, a [FileSink] rewrites a file after each snapshot:
//
//	sink, err := nodelink.NewFileSink("graph.svg", nodelink.SinkOptions{}, logger)
//	agg := aggregate.New(g, sink, aggregate.Options{})
//
// # Engines
//
// The default engine is neato (a spring model layout). dot, fdp, sfdp,
// circo and twopi are also accepted.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
