package graph

import (
	"errors"
	"math"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

// Edge is a weighted ownership stake: Source holds Weight (a fraction in
// [0,1]) of Target.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// SkippedEdge is a labelled edge that FromSnapshot left out of the weighted
// graph because its label is not an ownership percentage.
type SkippedEdge struct {
	Edge common.Edge
	Err  error
}

// OwnershipGraph is an immutable snapshot of nodes and weighted edges with an
// adjacency index built once at construction. It is safe for concurrent reads.
type OwnershipGraph struct {
	nodes    []common.Node
	edges    []Edge
	index    map[string]int
	outgoing map[string][]Edge
	incoming map[string][]Edge
}

// Build validates nodes and edges and indexes them. It fails with
// ErrMalformedGraph if a node id is empty or duplicated, a kind is unknown, an
// edge references an absent node, or a weight is not a finite value in [0,1].
// Parallel edges are kept as they are.
func Build(nodes []common.Node, edges []Edge) (*OwnershipGraph, error) {
	g := &OwnershipGraph{
		nodes:    make([]common.Node, len(nodes)),
		edges:    make([]Edge, len(edges)),
		index:    make(map[string]int, len(nodes)),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
	}
	copy(g.nodes, nodes)
	copy(g.edges, edges)

	for i, n := range g.nodes {
		if n.ID == "" {
			return nil, malformedNode(n.ID, "empty id")
		}
		if !n.Kind.Valid() {
			return nil, malformedNode(n.ID, "unknown kind "+string(n.Kind))
		}
		if _, exists := g.index[n.ID]; exists {
			return nil, malformedNode(n.ID, "duplicate id")
		}
		g.index[n.ID] = i
	}

	for _, e := range g.edges {
		if err := g.checkEndpoints(e.Source, e.Target); err != nil {
			return nil, malformedEdge(e, err.Error())
		}
		if math.IsNaN(e.Weight) || e.Weight < 0 || e.Weight > 1 {
			return nil, malformedEdge(e, "weight outside [0,1]")
		}
		g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
		g.incoming[e.Target] = append(g.incoming[e.Target], e)
	}

	return g, nil
}

// FromSnapshot extracts a weight from every labelled edge of the snapshot and
// builds the ownership graph from the edges that carry a percentage. Edges
// whose label is not a percentage are returned as skipped so the caller can
// report them; they do not make the build fail. Dangling edges do.
func FromSnapshot(snapshot common.Snapshot) (*OwnershipGraph, []SkippedEdge, error) {
	known := make(map[string]struct{}, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		known[n.ID] = struct{}{}
	}

	weighted := make([]Edge, 0, len(snapshot.Edges))
	var skipped []SkippedEdge
	for _, e := range snapshot.Edges {
		edge := Edge{Source: e.Source, Target: e.Target}
		if _, ok := known[e.Source]; !ok {
			return nil, nil, malformedEdge(edge, "unknown source node")
		}
		if _, ok := known[e.Target]; !ok {
			return nil, nil, malformedEdge(edge, "unknown target node")
		}

		w, err := ExtractWeight(e.Label)
		if err != nil {
			skipped = append(skipped, SkippedEdge{Edge: e, Err: err})
			continue
		}
		edge.Weight = w
		weighted = append(weighted, edge)
	}

	g, err := Build(snapshot.Nodes, weighted)
	if err != nil {
		return nil, skipped, err
	}
	return g, skipped, nil
}

func (g *OwnershipGraph) checkEndpoints(source, target string) error {
	if _, ok := g.index[source]; !ok {
		return errors.New("unknown source node")
	}
	if _, ok := g.index[target]; !ok {
		return errors.New("unknown target node")
	}
	return nil
}

// Outgoing returns the stakes held by id. The result is empty for unknown
// and sink nodes and must not be modified.
func (g *OwnershipGraph) Outgoing(id string) []Edge {
	return g.outgoing[id]
}

// Incoming returns the stakes held in id, i.e. its cap table.
func (g *OwnershipGraph) Incoming(id string) []Edge {
	return g.incoming[id]
}

// Node returns the node with the given id.
func (g *OwnershipGraph) Node(id string) (common.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return common.Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether id is a node of the graph.
func (g *OwnershipGraph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns a copy of the node list in input order.
func (g *OwnershipGraph) Nodes() []common.Node {
	out := make([]common.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the weighted edge list in input order.
func (g *OwnershipGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Persons returns the person nodes in input order.
func (g *OwnershipGraph) Persons() []common.Node {
	return g.byKind(common.KindPerson)
}

// Companies returns the company nodes in input order.
func (g *OwnershipGraph) Companies() []common.Node {
	return g.byKind(common.KindCompany)
}

// Len returns the number of nodes.
func (g *OwnershipGraph) Len() int {
	return len(g.nodes)
}

func (g *OwnershipGraph) byKind(kind common.NodeKind) []common.Node {
	out := make([]common.Node, 0)
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Name resolves a node id to its display name, falling back to the id.
func (g *OwnershipGraph) Name(id string) string {
	n, ok := g.Node(id)
	if !ok {
		return id
	}
	return n.DisplayName()
}
