package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/graph"

	"golang.org/x/sync/semaphore"
)

func newApp(t *testing.T) *App {
	t.Helper()
	params := graph.NewSolverParams{Strategy: graph.StrategyFixedPoint, MaxDepth: 12}
	solver, err := graph.NewSolver(params)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}
	return &App{Solver: solver, SolverParams: params}
}

func TestSolverFor(t *testing.T) {
	a := newApp(t)

	for _, s := range []string{"", "fixed_point"} {
		got, err := a.SolverFor(s)
		if err != nil || got != a.Solver {
			t.Errorf("SolverFor(%q) = %p, %v; want the default solver", s, got, err)
		}
	}

	got, err := a.SolverFor("paths")
	if err != nil {
		t.Fatalf("SolverFor(paths): %v", err)
	}
	if got == a.Solver || got.Strategy() != graph.StrategyPaths {
		t.Errorf("SolverFor(paths) returned strategy %s", got.Strategy())
	}

	if _, err := a.SolverFor("magic"); err == nil {
		t.Error("expected an error for an unknown strategy")
	}
}

func TestAcquireSolve(t *testing.T) {
	a := newApp(t)
	release, err := a.AcquireSolve(context.Background())
	if err != nil {
		t.Fatalf("unbounded AcquireSolve: %v", err)
	}
	release()

	a.SolveSlots = semaphore.NewWeighted(1)
	release, err = a.AcquireSolve(context.Background())
	if err != nil {
		t.Fatalf("AcquireSolve: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := a.AcquireSolve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the second solve to wait, got %v", err)
	}

	release()
	release, err = a.AcquireSolve(context.Background())
	if err != nil {
		t.Fatalf("AcquireSolve after release: %v", err)
	}
	release()
}
