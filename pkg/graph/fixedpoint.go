package graph

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

type link struct {
	to     int
	weight float64
}

// system is the fixed-point relation restricted to company nodes other than
// the target: eff[i] = direct[i] + Σ links[i].weight · eff[links[i].to].
type system struct {
	target    string
	companies []string
	index     map[string]int
	direct    []float64
	links     [][]link
}

func newSystem(g *OwnershipGraph, target string) *system {
	sys := &system{
		target: target,
		index:  make(map[string]int),
	}
	for _, n := range g.Companies() {
		if n.ID == target {
			continue
		}
		sys.index[n.ID] = len(sys.companies)
		sys.companies = append(sys.companies, n.ID)
	}

	sys.direct = make([]float64, len(sys.companies))
	sys.links = make([][]link, len(sys.companies))
	for i, id := range sys.companies {
		for _, e := range g.Outgoing(id) {
			if e.Weight == 0 || e.Target == id {
				continue
			}
			if e.Target == target {
				sys.direct[i] += e.Weight
				continue
			}
			if j, ok := sys.index[e.Target]; ok {
				sys.links[i] = append(sys.links[i], link{to: j, weight: e.Weight})
			}
		}
	}

	return sys
}

// personStakes composes each person's direct stakes with the company values.
// Only positive stakes are kept.
func (sys *system) personStakes(g *OwnershipGraph, eff []float64) map[string]float64 {
	stakes := make(map[string]float64)
	for _, p := range g.Persons() {
		if p.ID == sys.target {
			continue
		}
		total := 0.0
		for _, e := range g.Outgoing(p.ID) {
			if e.Weight == 0 {
				continue
			}
			if e.Target == sys.target {
				total += e.Weight
				continue
			}
			if j, ok := sys.index[e.Target]; ok {
				total += e.Weight * eff[j]
			}
		}
		if total > 0 {
			stakes[p.ID] = total
		}
	}
	return stakes
}

type iterationRun struct {
	iterations int
	converged  bool
	delta      float64
}

// iterate runs Jacobi sweeps starting from the direct stakes. Every sweep
// reads only the previous sweep's values, so splitting a sweep across
// goroutines does not change the result.
func (s *Solver) iterate(ctx context.Context, sys *system) ([]float64, iterationRun, error) {
	n := len(sys.companies)
	prev := make([]float64, n)
	copy(prev, sys.direct)
	next := make([]float64, n)

	run := iterationRun{}
	if n == 0 {
		run.converged = true
		return prev, run, nil
	}

	for run.iterations < s.maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, run, err
		}

		delta, finite := s.sweep(sys, prev, next)
		run.iterations++
		run.delta = delta
		if !finite {
			return nil, run, fmt.Errorf("%w after %d iterations", ErrDiverged, run.iterations)
		}

		prev, next = next, prev
		if delta < s.tolerance {
			run.converged = true
			break
		}
	}

	return prev, run, nil
}

func (s *Solver) sweep(sys *system, prev, next []float64) (float64, bool) {
	n := len(prev)
	workers := s.parallelism
	if workers <= 1 || n < s.parallelThreshold {
		return sweepRange(sys, prev, next, 0, n)
	}

	chunk := (n + workers - 1) / workers
	deltas := make([]float64, workers)
	finite := make([]bool, workers)

	var eg errgroup.Group
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			finite[w] = true
			continue
		}
		eg.Go(func() error {
			deltas[w], finite[w] = sweepRange(sys, prev, next, lo, hi)
			return nil
		})
	}
	_ = eg.Wait()

	maxDelta := 0.0
	allFinite := true
	for w := range workers {
		maxDelta = math.Max(maxDelta, deltas[w])
		allFinite = allFinite && finite[w]
	}
	return maxDelta, allFinite
}

func sweepRange(sys *system, prev, next []float64, lo, hi int) (float64, bool) {
	maxDelta := 0.0
	for i := lo; i < hi; i++ {
		v := sys.direct[i]
		for _, l := range sys.links[i] {
			v += l.weight * prev[l.to]
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.Inf(1), false
		}
		next[i] = v
		maxDelta = math.Max(maxDelta, math.Abs(v-prev[i]))
	}
	return maxDelta, true
}
