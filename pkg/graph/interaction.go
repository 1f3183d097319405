package graph

import (
	"cmp"
	"slices"
)

// pair is the canonical key of an undirected edge. The lexically smaller
// endpoint is always stored in a.
type pair struct {
	a, b string
}

func makePair(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// InteractionGraph is a weighted undirected graph of author and category keys.
//
// The zero value is not usable - use New to create a graph.
// InteractionGraph is not safe for concurrent use without external synchronization.
type InteractionGraph struct {
	nodes   map[string]Kind
	edges   map[pair]int
	degree  map[string]int
	records int
}

// New creates an empty interaction graph.
func New() *InteractionGraph {
	return &InteractionGraph{
		nodes:  make(map[string]Kind),
		edges:  make(map[pair]int),
		degree: make(map[string]int),
	}
}

// Increment records one co-occurrence of author and category.
//
// If the edge between the two keys exists its weight is incremented by one,
// otherwise the edge is created with weight 1. Missing nodes are added
// implicitly. The new weight is returned.
//
// When author == category the edge is a self-loop on a single node.
func (g *InteractionGraph) Increment(author, category string) int {
	g.nodes[author] |= KindAuthor
	g.nodes[category] |= KindCategory

	key := makePair(author, category)
	w, ok := g.edges[key]
	if !ok {
		g.degree[key.a]++
		if key.a != key.b {
			g.degree[key.b]++
		}
	}
	w++
	g.edges[key] = w
	g.records++
	return w
}

// Weight returns the weight of the edge between a and b, in either order.
func (g *InteractionGraph) Weight(a, b string) (int, bool) {
	w, ok := g.edges[makePair(a, b)]
	return w, ok
}

// HasEdge reports whether an edge exists between a and b, in either order.
func (g *InteractionGraph) HasEdge(a, b string) bool {
	_, ok := g.edges[makePair(a, b)]
	return ok
}

// HasNode reports whether id has been seen as an author or a category.
func (g *InteractionGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeKind returns how id has been seen so far.
// Returns 0 if the node does not exist.
func (g *InteractionGraph) NodeKind(id string) Kind { return g.nodes[id] }

// NodeCount returns the number of distinct nodes.
func (g *InteractionGraph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *InteractionGraph) EdgeCount() int { return len(g.edges) }

// TotalWeight returns the number of increments applied, which equals the
// sum of all edge weights.
func (g *InteractionGraph) TotalWeight() int { return g.records }

// Snapshot returns an immutable copy of the graph for rendering.
// Nodes are sorted by ID and edges by (A, B) for deterministic output.
func (g *InteractionGraph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:   make([]Node, 0, len(g.nodes)),
		Edges:   make([]Edge, 0, len(g.edges)),
		Records: g.records,
	}
	for id, kind := range g.nodes {
		s.Nodes = append(s.Nodes, Node{ID: id, Kind: kind, Degree: g.degree[id]})
	}
	for k, w := range g.edges {
		s.Edges = append(s.Edges, Edge{A: k.a, B: k.b, Weight: w})
	}
	slices.SortFunc(s.Nodes, func(x, y Node) int { return cmp.Compare(x.ID, y.ID) })
	slices.SortFunc(s.Edges, compareEdges)
	return s
}

func compareEdges(x, y Edge) int {
	if c := cmp.Compare(x.A, y.A); c != 0 {
		return c
	}
	return cmp.Compare(x.B, y.B)
}
