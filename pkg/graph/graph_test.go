package graph

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIncrement(t *testing.T) {
	tests := []struct {
		name      string
		pairs     [][2]string
		wantNodes int
		wantEdges int
		check     func(t *testing.T, g *InteractionGraph)
	}{
		{
			name:      "Empty",
			wantNodes: 0,
			wantEdges: 0,
		},
		{
			name:      "FirstOccurrence",
			pairs:     [][2]string{{"Eve", "movies"}},
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g *InteractionGraph) {
				if w, _ := g.Weight("Eve", "movies"); w != 1 {
					t.Errorf("Weight(Eve, movies) = %d, want 1", w)
				}
			},
		},
		{
			name:      "EndToEnd",
			pairs:     [][2]string{{"Eve", "movies"}, {"Eve", "movies"}, {"Bob", "movies"}},
			wantNodes: 3,
			wantEdges: 2,
			check: func(t *testing.T, g *InteractionGraph) {
				if w, _ := g.Weight("Eve", "movies"); w != 2 {
					t.Errorf("Weight(Eve, movies) = %d, want 2", w)
				}
				if w, _ := g.Weight("Bob", "movies"); w != 1 {
					t.Errorf("Weight(Bob, movies) = %d, want 1", w)
				}
				for _, id := range []string{"Eve", "Bob", "movies"} {
					if !g.HasNode(id) {
						t.Errorf("HasNode(%q) = false, want true", id)
					}
				}
				if !g.HasEdge("movies", "Bob") {
					t.Error("HasEdge(movies, Bob) = false, want true")
				}
				if g.HasEdge("Eve", "Bob") {
					t.Error("HasEdge(Eve, Bob) = true for authors that never met")
				}
			},
		},
		{
			name:      "Undirected",
			pairs:     [][2]string{{"a", "b"}, {"b", "a"}},
			wantNodes: 2,
			wantEdges: 1,
			check: func(t *testing.T, g *InteractionGraph) {
				if w, _ := g.Weight("b", "a"); w != 2 {
					t.Errorf("Weight(b, a) = %d, want 2", w)
				}
				if g.NodeKind("a") != KindBoth {
					t.Errorf("NodeKind(a) = %v, want both", g.NodeKind("a"))
				}
			},
		},
		{
			name:      "SelfLoop",
			pairs:     [][2]string{{"unknown", "unknown"}, {"unknown", "unknown"}},
			wantNodes: 1,
			wantEdges: 1,
			check: func(t *testing.T, g *InteractionGraph) {
				if w, _ := g.Weight("unknown", "unknown"); w != 2 {
					t.Errorf("Weight(unknown, unknown) = %d, want 2", w)
				}
				n, _ := g.Snapshot().Node("unknown")
				if n.Degree != 1 {
					t.Errorf("Degree = %d, want 1", n.Degree)
				}
			},
		},
		{
			name:      "NamespaceCollision",
			pairs:     [][2]string{{"music", "music"}, {"Eve", "music"}},
			wantNodes: 2,
			wantEdges: 2,
			check: func(t *testing.T, g *InteractionGraph) {
				if g.NodeKind("music") != KindBoth {
					t.Errorf("NodeKind(music) = %v, want both", g.NodeKind("music"))
				}
				if g.NodeKind("Eve") != KindAuthor {
					t.Errorf("NodeKind(Eve) = %v, want author", g.NodeKind("Eve"))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, p := range tt.pairs {
				g.Increment(p[0], p[1])
			}
			if g.NodeCount() != tt.wantNodes {
				t.Errorf("NodeCount() = %d, want %d", g.NodeCount(), tt.wantNodes)
			}
			if g.EdgeCount() != tt.wantEdges {
				t.Errorf("EdgeCount() = %d, want %d", g.EdgeCount(), tt.wantEdges)
			}
			if g.TotalWeight() != len(tt.pairs) {
				t.Errorf("TotalWeight() = %d, want %d", g.TotalWeight(), len(tt.pairs))
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestIncrementMonotonicWithInterleaving(t *testing.T) {
	g := New()
	const n = 50
	prev := 0
	for i := 0; i < n; i++ {
		g.Increment("Bob", "news")
		g.Increment("Eve", "movies")
		w := g.Increment("Eve", "movies")
		g.Increment("Alice", "sports")

		if w <= prev {
			t.Fatalf("weight decreased or stalled: %d after %d", w, prev)
		}
		prev = w
	}

	if w, _ := g.Weight("Bob", "news"); w != n {
		t.Errorf("Weight(Bob, news) = %d, want %d", w, n)
	}
	if w, _ := g.Weight("Eve", "movies"); w != 2*n {
		t.Errorf("Weight(Eve, movies) = %d, want %d", w, 2*n)
	}
	if w, _ := g.Weight("Alice", "sports"); w != n {
		t.Errorf("Weight(Alice, sports) = %d, want %d", w, n)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	g := New()
	g.Increment("Eve", "movies")

	s := g.Snapshot()
	g.Increment("Eve", "movies")
	g.Increment("Bob", "books")

	if w, _ := s.Weight("Eve", "movies"); w != 1 {
		t.Errorf("snapshot weight changed after Increment: got %d, want 1", w)
	}
	if s.NodeCount() != 2 {
		t.Errorf("snapshot NodeCount() = %d, want 2", s.NodeCount())
	}

	s.Edges[0].Weight = 99
	if w, _ := g.Weight("Eve", "movies"); w != 2 {
		t.Errorf("graph weight changed through snapshot: got %d, want 2", w)
	}
}

func TestSnapshotOrdering(t *testing.T) {
	g := New()
	g.Increment("zed", "b")
	g.Increment("amy", "c")
	g.Increment("amy", "a")

	s := g.Snapshot()
	var ids []string
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	if got := strings.Join(ids, ","); got != "a,amy,b,c,zed" {
		t.Errorf("node order = %s, want a,amy,b,c,zed", got)
	}

	for _, e := range s.Edges {
		if e.B < e.A {
			t.Errorf("edge %s—%s not canonical", e.A, e.B)
		}
	}
	if s.Edges[0].A != "a" || s.Edges[0].B != "amy" {
		t.Errorf("first edge = %s—%s, want a—amy", s.Edges[0].A, s.Edges[0].B)
	}
}

func TestSnapshotLookups(t *testing.T) {
	g := New()
	g.Increment("Eve", "movies")
	g.Increment("Eve", "movies")
	g.Increment("Eve", "books")
	s := g.Snapshot()

	if _, ok := s.Weight("Bob", "movies"); ok {
		t.Error("Weight(Bob, movies) should not exist")
	}
	if w, ok := s.Weight("movies", "Eve"); !ok || w != 2 {
		t.Errorf("Weight(movies, Eve) = %d, %v, want 2, true", w, ok)
	}
	n, ok := s.Node("Eve")
	if !ok || n.Degree != 2 || n.Kind != KindAuthor {
		t.Errorf("Node(Eve) = %+v, %v", n, ok)
	}
	if s.MaxWeight() != 2 {
		t.Errorf("MaxWeight() = %d, want 2", s.MaxWeight())
	}

	byWeight := s.EdgesByWeight()
	if byWeight[0].B != "movies" || byWeight[0].Weight != 2 {
		t.Errorf("EdgesByWeight()[0] = %+v, want Eve—movies:2", byWeight[0])
	}
	if s.Edges[0].B != "books" {
		t.Error("EdgesByWeight() must not reorder the snapshot")
	}
}

func TestMarshalSnapshotEmpty(t *testing.T) {
	data, err := MarshalSnapshot(New().Snapshot())
	if err != nil {
		t.Fatalf("MarshalSnapshot() error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["nodes"].([]any); !ok {
		t.Errorf("nodes = %v, want empty array", raw["nodes"])
	}
	if _, ok := raw["edges"].([]any); !ok {
		t.Errorf("edges = %v, want empty array", raw["edges"])
	}
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	g := New()
	g.Increment("Eve", "movies")
	g.Increment("movies", "movies")
	want := g.Snapshot()

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	if err := WriteSnapshotFile(want, path); err != nil {
		t.Fatalf("WriteSnapshotFile() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}

	got, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile() error: %v", err)
	}
	wantData, _ := MarshalSnapshot(want)
	gotData, _ := MarshalSnapshot(got)
	if !bytes.Equal(wantData, gotData) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", gotData, wantData)
	}
	if n, _ := got.Node("movies"); n.Kind != KindBoth {
		t.Errorf("Node(movies).Kind = %v, want both", n.Kind)
	}
}

func TestUnmarshalSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid JSON", `{"nodes": [`},
		{"zero weight", `{"edges": [{"a": "x", "b": "y", "weight": 0}]}`},
		{"unordered", `{"edges": [{"a": "y", "b": "x", "weight": 1}]}`},
		{"unknown kind", `{"nodes": [{"id": "x", "kind": "robot"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalSnapshot([]byte(tt.data)); err == nil {
				t.Error("UnmarshalSnapshot() should return error")
			}
		})
	}
}

func TestReadSnapshotFileMissing(t *testing.T) {
	_, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("ReadSnapshotFile() should fail for a missing file")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAuthor, "author"},
		{KindCategory, "category"},
		{KindBoth, "both"},
		{0, ""},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
