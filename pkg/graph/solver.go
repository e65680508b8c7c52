package graph

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"

	"golang.org/x/sync/errgroup"
)

// Strategy selects how the solver resolves effective ownership.
type Strategy string

const (
	// StrategyFixedPoint iterates eff(n) = direct(n) + Σ w(n,c)·eff(c) over
	// company nodes until the largest change drops below the tolerance.
	StrategyFixedPoint Strategy = "fixed_point"
	// StrategyPaths enumerates simple paths from every person to the target.
	StrategyPaths Strategy = "paths"
	// StrategyLinear solves the fixed-point relation directly as (I-M)x = b.
	StrategyLinear Strategy = "linear"
)

// ParseStrategy maps a configuration string to a Strategy. The empty string
// selects StrategyFixedPoint.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFixedPoint:
		return StrategyFixedPoint, nil
	case StrategyPaths, StrategyLinear:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown solver strategy %q", s)
	}
}

const (
	DefaultTolerance         = 1e-9
	DefaultMaxIterations     = 10000
	DefaultMaxDepth          = 64
	DefaultMaxPaths          = 1_000_000
	defaultParallelThreshold = 512
)

// Solver computes effective ownership over OwnershipGraph snapshots. A Solver
// holds configuration only and may be shared between goroutines.
//
// A Solver should be created using NewSolver.
type Solver struct {
	strategy          Strategy
	tolerance         float64
	maxIterations     int
	maxDepth          int
	maxPaths          int
	parallelism       int
	parallelThreshold int
}

// NewSolverParams configures a Solver. Zero values select the defaults.
//
// Tolerance and MaxIterations bound the fixed-point iteration. MaxDepth (in
// edges) and MaxPaths bound path enumeration. Parallelism is the number of
// goroutines used for a fixed-point sweep and for SolveMany.
type NewSolverParams struct {
	Strategy      Strategy
	Tolerance     float64
	MaxIterations int
	MaxDepth      int
	MaxPaths      int
	Parallelism   int
}

// NewSolver creates a Solver from params.
//
// Example:
//
//	solver, err := graph.NewSolver(graph.NewSolverParams{
//		Strategy:  graph.StrategyFixedPoint,
//		Tolerance: 1e-12,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	res, err := solver.Solve(ctx, g, "556000-1111")
func NewSolver(params NewSolverParams) (*Solver, error) {
	strategy, err := ParseStrategy(string(params.Strategy))
	if err != nil {
		return nil, err
	}
	if params.Tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %g", params.Tolerance)
	}

	s := &Solver{
		strategy:          strategy,
		tolerance:         params.Tolerance,
		maxIterations:     params.MaxIterations,
		maxDepth:          params.MaxDepth,
		maxPaths:          params.MaxPaths,
		parallelism:       params.Parallelism,
		parallelThreshold: defaultParallelThreshold,
	}
	if s.tolerance == 0 {
		s.tolerance = DefaultTolerance
	}
	if s.maxIterations <= 0 {
		s.maxIterations = DefaultMaxIterations
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	if s.maxPaths <= 0 {
		s.maxPaths = DefaultMaxPaths
	}
	if s.parallelism <= 0 {
		s.parallelism = runtime.GOMAXPROCS(0)
	}

	return s, nil
}

// Strategy returns the configured strategy.
func (s *Solver) Strategy() Strategy {
	return s.strategy
}

// Result is the outcome of a single solve.
//
// Stakes maps every person with a positive effective stake to its fraction of
// the target. Iterations, Converged and Delta describe a fixed-point run;
// Paths counts the paths found by path enumeration.
type Result struct {
	Target     string
	Strategy   Strategy
	Stakes     map[string]float64
	Iterations int
	Converged  bool
	Delta      float64
	Paths      int
}

// Solve computes the effective ownership of every person in targetID. It
// fails with ErrUnknownTarget when the target is not in the graph. A
// fixed-point run that hits the iteration cap is returned with Converged set
// to false rather than as an error.
func (s *Solver) Solve(ctx context.Context, g *OwnershipGraph, targetID string) (*Result, error) {
	if g == nil || !g.Has(targetID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}

	res := &Result{Target: targetID, Strategy: s.strategy}

	switch s.strategy {
	case StrategyPaths:
		stakes, paths, err := s.enumeratePaths(ctx, g, targetID)
		if err != nil {
			return nil, err
		}
		res.Stakes = stakes
		res.Paths = paths
		res.Converged = true
	case StrategyLinear:
		sys := newSystem(g, targetID)
		eff, err := solveLinear(sys)
		if err != nil {
			return nil, err
		}
		res.Stakes = sys.personStakes(g, eff)
		res.Converged = true
	default:
		sys := newSystem(g, targetID)
		eff, run, err := s.iterate(ctx, sys)
		if err != nil {
			return nil, err
		}
		res.Stakes = sys.personStakes(g, eff)
		res.Iterations = run.iterations
		res.Converged = run.converged
		res.Delta = run.delta
	}

	return res, nil
}

// SolveMany solves several targets over the same snapshot concurrently. The
// first failure cancels the remaining solves.
func (s *Solver) SolveMany(ctx context.Context, g *OwnershipGraph, targetIDs []string) (map[string]*Result, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelism)

	mutex := sync.Mutex{}
	results := make(map[string]*Result, len(targetIDs))

	for _, id := range targetIDs {
		eg.Go(func() error {
			res, err := s.Solve(gCtx, g, id)
			if err != nil {
				return fmt.Errorf("failed to solve %s: %w", id, err)
			}
			mutex.Lock()
			defer mutex.Unlock()
			results[id] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

var defaultSolver, _ = NewSolver(NewSolverParams{})

// ComputeEffectiveOwnership returns the effective ownership fraction of every
// person in targetID using the default fixed-point solver.
func ComputeEffectiveOwnership(g *OwnershipGraph, targetID string) (map[string]float64, error) {
	res, err := defaultSolver.Solve(context.Background(), g, targetID)
	if err != nil {
		return nil, err
	}
	return res.Stakes, nil
}

// Names returns a resolver for RankWithNames backed by the graph's nodes.
func Names(g *OwnershipGraph) func(string) string {
	return func(id string) string {
		return g.Name(id)
	}
}

// OwnerRows is a convenience for adapters: it solves, ranks and attaches
// node names in one call.
func (s *Solver) OwnerRows(ctx context.Context, g *OwnershipGraph, targetID string) ([]common.OwnershipRow, *Result, error) {
	res, err := s.Solve(ctx, g, targetID)
	if err != nil {
		return nil, nil, err
	}
	return RankWithNames(res.Stakes, Names(g)), res, nil
}
