package graph

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

// enumeratePaths sums, for every person, the product of the weights along
// every simple path to target. A path never revisits a node already on it,
// passes through company nodes only and is at most maxDepth edges long.
// Paths whose product reaches zero are pruned.
func (s *Solver) enumeratePaths(ctx context.Context, g *OwnershipGraph, target string) (map[string]float64, int, error) {
	stakes := make(map[string]float64)
	onPath := make(map[string]bool)
	paths := 0
	visits := 0

	var walk func(start, node string, product float64, depth int) error
	walk = func(start, node string, product float64, depth int) error {
		if depth >= s.maxDepth {
			return nil
		}

		visits++
		if visits%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		onPath[node] = true
		defer delete(onPath, node)

		for _, e := range g.Outgoing(node) {
			w := product * e.Weight
			if w == 0 {
				continue
			}
			if e.Target == target {
				stakes[start] += w
				paths++
				if paths > s.maxPaths {
					return fmt.Errorf("%w: more than %d paths", ErrPathLimitExceeded, s.maxPaths)
				}
				continue
			}
			if onPath[e.Target] || !companyKind(g, e.Target) {
				continue
			}
			if err := walk(start, e.Target, w, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, p := range g.Persons() {
		if p.ID == target {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, paths, err
		}
		if err := walk(p.ID, p.ID, 1, 0); err != nil {
			return nil, paths, err
		}
	}

	for id, v := range stakes {
		if v <= 0 {
			delete(stakes, id)
		}
	}

	return stakes, paths, nil
}

func companyKind(g *OwnershipGraph, id string) bool {
	n, ok := g.Node(id)
	return ok && n.Kind == common.KindCompany
}
