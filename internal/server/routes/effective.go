package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/backend"
	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/metrics"

	"github.com/labstack/echo/v4"
)

type effectiveResponse struct {
	CompanyID   string                  `json:"company_id"`
	CompanyName string                  `json:"company_name"`
	Strategy    graph.Strategy          `json:"strategy"`
	Owners      []common.OwnershipRow   `json:"owners"`
	Iterations  int                     `json:"iterations"`
	Converged   bool                    `json:"converged"`
	Delta       float64                 `json:"delta"`
	Paths       int                     `json:"paths"`
	Skipped     []queue.SkippedLabel    `json:"skipped"`
	Anomalies   []graph.CapTableAnomaly `json:"anomalies,omitempty"`
}

// solveSnapshot turns a labelled snapshot into ranked effective owners of
// target. Skipped labels and cap table anomalies are logged and returned.
func solveSnapshot(ctx context.Context, solver *graph.Solver, snapshot common.Snapshot, target string) (*effectiveResponse, error) {
	g, skipped, err := graph.FromSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		logger.Debug("[Server] Skipping edge label", "source", s.Edge.Source, "target", s.Edge.Target, "label", s.Edge.Label)
	}
	metrics.SkippedLabelsTotal.Add(float64(len(skipped)))

	anomalies := graph.CheckCapTables(g)
	for _, a := range anomalies {
		logger.Warn("[Server] Cap table above 100%", "node", a.NodeID, "total", a.Total)
	}

	start := time.Now()
	rows, res, err := solver.OwnerRows(ctx, g, target)
	metrics.ObserveSolve(solver.Strategy(), time.Since(start), res, err)
	if err != nil {
		return nil, err
	}
	if !res.Converged {
		logger.Warn("[Server] Solver did not converge", "target", target, "iterations", res.Iterations, "delta", res.Delta)
	}

	return &effectiveResponse{
		CompanyID:   target,
		CompanyName: g.Name(target),
		Strategy:    res.Strategy,
		Owners:      rows,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Delta:       res.Delta,
		Paths:       res.Paths,
		Skipped:     queue.SkippedLabels(skipped),
		Anomalies:   anomalies,
	}, nil
}

// GetEffectiveOwnershipHandler loads the owner network of a company from the
// graph source and ranks the persons by effective stake.
func GetEffectiveOwnershipHandler(c echo.Context) error {
	type effectiveParams struct {
		CompanyID string `query:"company_id" validate:"required"`
		Depth     int    `query:"depth" validate:"min=0,max=64"`
		Strategy  string `query:"strategy" validate:"omitempty,oneof=fixed_point paths linear"`
	}

	params := new(effectiveParams)
	if err := c.Bind(params); err != nil {
		return invalidRequest(c, err)
	}
	params.CompanyID = util.NormalizeID(params.CompanyID)
	if err := c.Validate(params); err != nil {
		return invalidRequest(c, err)
	}

	a := app(c)
	solver, err := a.SolverFor(params.Strategy)
	if err != nil {
		return invalidRequest(c, err)
	}

	ctx := c.Request().Context()
	depth := backend.ClampDepth(params.Depth, a.NetworkDepth)
	key := fmt.Sprintf("%s|%d|%s", params.CompanyID, depth, solver.Strategy())
	res, err, shared := a.Solves.Do(key, func() (any, error) {
		release, err := a.AcquireSolve(ctx)
		if err != nil {
			return nil, err
		}
		defer release()

		snapshot, err := a.Source.Network(ctx, params.CompanyID, depth)
		if err != nil {
			return nil, err
		}
		return solveSnapshot(ctx, solver, *snapshot, params.CompanyID)
	})
	if err != nil {
		return handleError(c, err)
	}
	if shared {
		logger.Debug("[Server] Shared effective ownership result", "key", key)
	}
	return c.JSON(http.StatusOK, res)
}

// PostEffectiveOwnershipHandler solves over a snapshot supplied by the
// caller instead of the graph source.
func PostEffectiveOwnershipHandler(c echo.Context) error {
	type effectiveBody struct {
		Target   string        `json:"target" validate:"required"`
		Strategy string        `json:"strategy" validate:"omitempty,oneof=fixed_point paths linear"`
		Nodes    []common.Node `json:"nodes" validate:"required,min=1"`
		Edges    []common.Edge `json:"edges"`
	}

	body := new(effectiveBody)
	if err := c.Bind(body); err != nil {
		return invalidRequest(c, err)
	}
	body.Target = util.NormalizeID(body.Target)
	if err := c.Validate(body); err != nil {
		return invalidRequest(c, err)
	}

	a := app(c)
	solver, err := a.SolverFor(body.Strategy)
	if err != nil {
		return invalidRequest(c, err)
	}

	ctx := c.Request().Context()
	release, err := a.AcquireSolve(ctx)
	if err != nil {
		return handleError(c, err)
	}
	defer release()

	snapshot := common.Snapshot{Nodes: body.Nodes, Edges: body.Edges}
	res, err := solveSnapshot(ctx, solver, snapshot, body.Target)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
