// Package graph implements the immutable in-memory snapshot a single
// analysis run operates on. Nodes and edges live in index-addressed arenas;
// detectors hold read handles only and never mutate the snapshot, so it can
// be shared by concurrently running detectors without locking.
package graph

import (
	"github.com/corpgraph/CorpRisk-Insight/pkg/errors"
	graphtypes "github.com/corpgraph/CorpRisk-Insight/pkg/types/graph"
)

// Node is one materialized node in the arena.
type Node struct {
	// Index is the node's arena position, stable for the snapshot lifetime.
	Index int
	ID    string
	Kind  graphtypes.NodeKind
	Attrs graphtypes.Attributes
}

// Edge is one materialized directed edge in the arena. Source and Target are
// arena indexes; SourceID and TargetID the corresponding node identifiers.
type Edge struct {
	Index    int
	Source   int
	Target   int
	SourceID string
	TargetID string
	Type     graphtypes.EdgeType
	Attrs    graphtypes.Attributes
}

// Snapshot is the immutable directed multigraph for one analysis run.
// Construction is deterministic: identical record sets produce identical
// structural hashes regardless of input order.
type Snapshot struct {
	nodes []Node
	edges []Edge

	byID   map[string]int   // node id -> arena index
	byKind map[graphtypes.NodeKind][]int

	out []([]int) // node index -> out-edge indexes
	in  []([]int) // node index -> in-edge indexes

	hash string // computed once during construction
}

// NewSnapshot materializes a snapshot from the given record sets. It fails
// with ErrCodeReferentialIntegrity when an edge references an id absent from
// the node set, with ErrCodeConflict on duplicate node ids, and with
// ErrCodeUnknownNodeKind / ErrCodeUnknownEdgeType on vocabulary violations.
func NewSnapshot(nodes []graphtypes.NodeRecord, edges []graphtypes.EdgeRecord) (*Snapshot, error) {
	s := &Snapshot{
		nodes:  make([]Node, 0, len(nodes)),
		edges:  make([]Edge, 0, len(edges)),
		byID:   make(map[string]int, len(nodes)),
		byKind: make(map[graphtypes.NodeKind][]int),
	}

	for _, rec := range nodes {
		if rec.ID == "" {
			return nil, errors.New(errors.ErrCodeValidation, "node record with empty id")
		}
		if !rec.Kind.IsValid() {
			return nil, errors.New(errors.ErrCodeUnknownNodeKind, "unknown node kind").
				WithDetail("id=" + rec.ID + " kind=" + rec.Kind.String())
		}
		if _, dup := s.byID[rec.ID]; dup {
			return nil, errors.New(errors.ErrCodeConflict, "duplicate node id").WithDetail("id=" + rec.ID)
		}
		idx := len(s.nodes)
		s.nodes = append(s.nodes, Node{Index: idx, ID: rec.ID, Kind: rec.Kind, Attrs: rec.Attrs})
		s.byID[rec.ID] = idx
		s.byKind[rec.Kind] = append(s.byKind[rec.Kind], idx)
	}

	s.out = make([][]int, len(s.nodes))
	s.in = make([][]int, len(s.nodes))

	for _, rec := range edges {
		if !rec.Type.IsValid() {
			return nil, errors.New(errors.ErrCodeUnknownEdgeType, "unknown edge type").
				WithDetail("type=" + rec.Type.String())
		}
		src, ok := s.byID[rec.Source]
		if !ok {
			return nil, errors.New(errors.ErrCodeReferentialIntegrity, "edge references unknown source").
				WithDetail("source=" + rec.Source + " type=" + rec.Type.String())
		}
		dst, ok := s.byID[rec.Target]
		if !ok {
			return nil, errors.New(errors.ErrCodeReferentialIntegrity, "edge references unknown target").
				WithDetail("target=" + rec.Target + " type=" + rec.Type.String())
		}
		idx := len(s.edges)
		s.edges = append(s.edges, Edge{
			Index: idx, Source: src, Target: dst,
			SourceID: rec.Source, TargetID: rec.Target,
			Type: rec.Type, Attrs: rec.Attrs,
		})
		s.out[src] = append(s.out[src], idx)
		s.in[dst] = append(s.in[dst], idx)
	}

	s.hash = structuralHash(s)
	return s, nil
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// StructuralHash returns the order-independent digest over (id, kind) pairs
// and (source, type, target) triples. It is the cache key for resolved edge
// weights and is stable across repeated loads of the same underlying data.
func (s *Snapshot) StructuralHash() string { return s.hash }

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.nodes[idx], true
}

// NodeAt returns the node at the given arena index.
func (s *Snapshot) NodeAt(idx int) *Node { return &s.nodes[idx] }

// EdgeAt returns the edge at the given arena index.
func (s *Snapshot) EdgeAt(idx int) *Edge { return &s.edges[idx] }

// NodesOfKind returns the nodes tagged with the given kind, in arena order.
// The returned slice is shared; callers must not modify it.
func (s *Snapshot) NodesOfKind(kind graphtypes.NodeKind) []*Node {
	idxs := s.byKind[kind]
	out := make([]*Node, len(idxs))
	for i, idx := range idxs {
		out[i] = &s.nodes[idx]
	}
	return out
}

// OutEdges returns every edge leaving the node with the given id.
func (s *Snapshot) OutEdges(id string) []*Edge {
	idx, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.edgeRefs(s.out[idx])
}

// InEdges returns every edge arriving at the node with the given id.
func (s *Snapshot) InEdges(id string) []*Edge {
	idx, ok := s.byID[id]
	if !ok {
		return nil
	}
	return s.edgeRefs(s.in[idx])
}

// OutEdgesByType returns the out-edges of the given type for a node.
func (s *Snapshot) OutEdgesByType(id string, typ graphtypes.EdgeType) []*Edge {
	return filterByType(s.OutEdges(id), typ)
}

// InEdgesByType returns the in-edges of the given type for a node.
func (s *Snapshot) InEdgesByType(id string, typ graphtypes.EdgeType) []*Edge {
	return filterByType(s.InEdges(id), typ)
}

// Edges returns all edges in arena order. The slice is freshly allocated but
// the pointed-to edges are shared; callers must not modify them.
func (s *Snapshot) Edges() []*Edge {
	out := make([]*Edge, len(s.edges))
	for i := range s.edges {
		out[i] = &s.edges[i]
	}
	return out
}

// Nodes returns all nodes in arena order under the same sharing contract as
// Edges.
func (s *Snapshot) Nodes() []*Node {
	out := make([]*Node, len(s.nodes))
	for i := range s.nodes {
		out[i] = &s.nodes[i]
	}
	return out
}

func (s *Snapshot) edgeRefs(idxs []int) []*Edge {
	out := make([]*Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = &s.edges[idx]
	}
	return out
}

func filterByType(edges []*Edge, typ graphtypes.EdgeType) []*Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
