package graph

import (
	"cmp"
	"fmt"
	"slices"
)

// =============================================================================
// Kind - How a Node Was Seen
// =============================================================================

// Kind records in which role a node key has appeared. It is a bit set so a
// key seen both as author and as category is [KindBoth].
type Kind uint8

const (
	// KindAuthor marks a key seen in the author field.
	KindAuthor Kind = 1 << iota
	// KindCategory marks a key seen in the category field.
	KindCategory

	// KindBoth marks a key that collided across the two namespaces.
	KindBoth = KindAuthor | KindCategory
)

// Kind names used in serialization.
const (
	kindNameAuthor   = "author"
	kindNameCategory = "category"
	kindNameBoth     = "both"
)

// String returns the serialized name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAuthor:
		return kindNameAuthor
	case KindCategory:
		return kindNameCategory
	case KindBoth:
		return kindNameBoth
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case kindNameAuthor:
		*k = KindAuthor
	case kindNameCategory:
		*k = KindCategory
	case kindNameBoth:
		*k = KindBoth
	case "":
		*k = 0
	default:
		return fmt.Errorf("unknown node kind %q", b)
	}
	return nil
}

// =============================================================================
// Snapshot - Immutable Graph View
// =============================================================================

// Snapshot is an immutable copy of an [InteractionGraph] handed to renderers.
// It doubles as the JSON serialization format.
type Snapshot struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	Records int    `json:"records"` // Sum of all edge weights
}

// Node is a graph vertex.
type Node struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Degree int    `json:"degree"` // Number of distinct neighbours (self-loop counts once)
}

// Edge is an undirected weighted edge. A <= B lexically.
type Edge struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges in the snapshot.
func (s Snapshot) EdgeCount() int { return len(s.Edges) }

// IsEmpty reports whether the snapshot has no nodes.
func (s Snapshot) IsEmpty() bool { return len(s.Nodes) == 0 }

// Weight returns the weight of the edge between a and b, in either order.
func (s Snapshot) Weight(a, b string) (int, bool) {
	key := makePair(a, b)
	i, ok := slices.BinarySearchFunc(s.Edges, Edge{A: key.a, B: key.b}, compareEdges)
	if !ok {
		return 0, false
	}
	return s.Edges[i].Weight, true
}

// Node returns the node with the given ID.
func (s Snapshot) Node(id string) (Node, bool) {
	i, ok := slices.BinarySearchFunc(s.Nodes, id, func(n Node, id string) int {
		return cmp.Compare(n.ID, id)
	})
	if !ok {
		return Node{}, false
	}
	return s.Nodes[i], true
}

// MaxWeight returns the largest edge weight, or 0 for an empty snapshot.
func (s Snapshot) MaxWeight() int {
	max := 0
	for _, e := range s.Edges {
		if e.Weight > max {
			max = e.Weight
		}
	}
	return max
}

// EdgesByWeight returns a copy of the edges ordered by descending weight,
// ties broken by (A, B).
func (s Snapshot) EdgesByWeight() []Edge {
	out := slices.Clone(s.Edges)
	slices.SortStableFunc(out, func(x, y Edge) int {
		if c := cmp.Compare(y.Weight, x.Weight); c != 0 {
			return c
		}
		return compareEdges(x, y)
	})
	return out
}
