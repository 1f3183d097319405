// Package graph provides the weighted author ↔ category interaction graph.
//
// # Model
//
// [InteractionGraph] is an undirected graph whose nodes are author and
// category keys and whose edges carry an integer weight: the number of
// records that produced that (author, category) pair since the graph was
// created. Edges are unordered pairs, so at most one edge exists between two
// nodes, and weights only ever grow.
//
// Authors and categories share a single node namespace. When an author name
// equals a category name both collapse into one node whose [Kind] becomes
// [KindBoth]. Callers that want separate namespaces should tag the keys
// before calling [InteractionGraph.Increment] (see the aggregate package).
//
// # Snapshots
//
// Renderers never see the live graph. [InteractionGraph.Snapshot] returns a
// deep, deterministically ordered copy:
//
//	g := graph.New()
//	g.Increment("Eve", "movies")
//	s := g.Snapshot()
//	fmt.Println(s.NodeCount(), s.EdgeCount()) // 2 1
//
// # Serialization
//
// Snapshots use a simple node-link JSON format:
//
//	{
//	  "nodes": [{"id": "Eve", "kind": "author", "degree": 1}, ...],
//	  "edges": [{"a": "Eve", "b": "movies", "weight": 2}],
//	  "records": 2
//	}
//
// Common operations:
//
//	data, _ := graph.MarshalSnapshot(s)       // Snapshot → []byte
//	graph.WriteSnapshotFile(s, "graph.json")  // Snapshot → File (atomic)
//	s, _ = graph.ReadSnapshotFile("graph.json")
//
// # Concurrency
//
// InteractionGraph is not safe for concurrent use; it is owned by the single
// ingest loop. Snapshots are immutable values and may be shared freely.
package graph
