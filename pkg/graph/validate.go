package graph

import "github.com/OFFIS-RIT/stakegraph/pkg/common"

const capTableSlack = 1e-9

// CapTableAnomaly reports a node whose recorded owners hold more than 100%.
type CapTableAnomaly struct {
	NodeID string  `json:"node_id"`
	Total  float64 `json:"total"`
	Owners int     `json:"owners"`
}

// CheckCapTables lists every node whose incoming ownership weights sum above
// 1. The solver does not call this; it trusts the weights as given.
func CheckCapTables(g *OwnershipGraph) []CapTableAnomaly {
	var anomalies []CapTableAnomaly
	for _, n := range g.Nodes() {
		in := g.Incoming(n.ID)
		total := 0.0
		for _, e := range in {
			total += e.Weight
		}
		if total > 1+capTableSlack {
			anomalies = append(anomalies, CapTableAnomaly{
				NodeID: n.ID,
				Total:  total,
				Owners: len(in),
			})
		}
	}
	return anomalies
}

// CapTable returns the direct owners of id with their percentages, ranked
// like effective ownership. Parallel stakes from the same owner are summed.
func CapTable(g *OwnershipGraph, id string) []common.OwnershipRow {
	direct := make(map[string]float64)
	for _, e := range g.Incoming(id) {
		direct[e.Source] += e.Weight
	}
	return RankWithNames(direct, Names(g))
}

// Subsidiaries returns the companies directly held by id with the held
// percentages.
func Subsidiaries(g *OwnershipGraph, id string) []common.OwnershipRow {
	held := make(map[string]float64)
	for _, e := range g.Outgoing(id) {
		if companyKind(g, e.Target) {
			held[e.Target] += e.Weight
		}
	}
	return RankWithNames(held, Names(g))
}
