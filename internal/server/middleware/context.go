package middleware

import (
	"context"

	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	"github.com/OFFIS-RIT/stakegraph/internal/storage"
	"github.com/OFFIS-RIT/stakegraph/internal/timing"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// App carries the shared dependencies of the handlers. Reports, Queue,
// Objects and Timings are nil when the matching service is not configured;
// the report endpoints answer 503 in that case.
//
// Solves coalesces identical effective ownership requests that arrive while
// one is running. SolveSlots bounds the solves running at once; nil means no
// bound.
type App struct {
	Source       store.GraphSource
	Reports      store.ReportRepository
	Queue        queue.Channel
	Objects      storage.ObjectStore
	Timings      timing.DB
	Solver       *graph.Solver
	SolverParams graph.NewSolverParams
	NetworkDepth int

	Solves     singleflight.Group
	SolveSlots *semaphore.Weighted
}

// AcquireSolve waits for a free solve slot. The returned func releases it.
func (a *App) AcquireSolve(ctx context.Context) (func(), error) {
	if a.SolveSlots == nil {
		return func() {}, nil
	}
	if err := a.SolveSlots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { a.SolveSlots.Release(1) }, nil
}

// SolverFor returns the default solver for an empty strategy and a solver
// with the same limits but the given strategy otherwise.
func (a *App) SolverFor(strategy string) (*graph.Solver, error) {
	if strategy == "" || graph.Strategy(strategy) == a.Solver.Strategy() {
		return a.Solver, nil
	}
	parsed, err := graph.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	params := a.SolverParams
	params.Strategy = parsed
	return graph.NewSolver(params)
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
