package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/storage"
	"github.com/OFFIS-RIT/stakegraph/internal/timing"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/leaselock"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/metrics"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/google/uuid"
)

// ErrPermanent marks failures that a retry cannot fix. Such messages go to the
// dead letter queue at once.
var ErrPermanent = errors.New("permanent failure")

// EnqueueReport stores a pending report and publishes its job message. If the
// publish fails the report is marked failed.
func EnqueueReport(
	ctx context.Context,
	ch Channel,
	reports store.ReportRepository,
	companyID string,
	depth int,
	strategy graph.Strategy,
) (*store.Report, error) {
	report := &store.Report{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Strategy:  string(strategy),
		Depth:     depth,
		Status:    store.ReportPending,
	}
	if err := reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	body, err := json.Marshal(QueueReportMsg{
		JobID:     report.ID,
		CompanyID: companyID,
		Depth:     depth,
		Strategy:  string(strategy),
	})
	if err != nil {
		return nil, err
	}
	if err := PublishFIFO(ch, ReportQueue, body); err != nil {
		if failErr := reports.FailReport(ctx, report.ID, "failed to enqueue"); failErr != nil {
			logger.Error("[Queue] Failed to mark report failed", "job_id", report.ID, "err", failErr)
		}
		return nil, fmt.Errorf("failed to publish report job: %w", err)
	}
	return report, nil
}

// ReportProcessor runs report jobs. Locks, Timings and Events are optional.
type ReportProcessor struct {
	Source  store.GraphSource
	Reports store.ReportRepository
	Objects storage.ObjectStore
	Locks   *leaselock.Client
	Timings timing.DB
	Events  Channel

	SolverParams graph.NewSolverParams
	NetworkDepth int
	LockOptions  leaselock.Options
}

func (p *ReportProcessor) ProcessReportMessage(ctx context.Context, body []byte) (err error) {
	var data QueueReportMsg
	if err := json.Unmarshal(body, &data); err != nil {
		return fmt.Errorf("%w: invalid report message: %w", ErrPermanent, err)
	}
	if data.JobID == "" || data.CompanyID == "" {
		return fmt.Errorf("%w: report message without job or company id", ErrPermanent)
	}

	report, err := p.Reports.GetReport(ctx, data.JobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return err
	}
	if report.Status == store.ReportCompleted {
		logger.Info("[Worker] Report already completed, skipping", "job_id", data.JobID)
		return nil
	}

	if err := p.Reports.MarkReportRunning(ctx, data.JobID); err != nil {
		return err
	}

	defer func() {
		if err == nil {
			return
		}
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if failErr := p.Reports.FailReport(failCtx, data.JobID, err.Error()); failErr != nil {
			logger.Error("[Worker] Failed to mark report failed", "job_id", data.JobID, "err", failErr)
		}
		metrics.ReportsTotal.WithLabelValues(string(store.ReportFailed)).Inc()
		p.publishEvent(ReportEvent{JobID: data.JobID, CompanyID: data.CompanyID, Status: string(store.ReportFailed), Error: err.Error()})
	}()

	run := func(ctx context.Context) error {
		return p.buildReport(ctx, data)
	}
	if p.Locks == nil {
		return run(ctx)
	}
	return p.Locks.WithLease(ctx, leaselock.Key("report", data.CompanyID), p.LockOptions, run)
}

func (p *ReportProcessor) buildReport(ctx context.Context, data QueueReportMsg) error {
	params := p.SolverParams
	if data.Strategy != "" {
		strategy, err := graph.ParseStrategy(data.Strategy)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		params.Strategy = strategy
	}
	solver, err := graph.NewSolver(params)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	}

	depth := data.Depth
	if depth <= 0 {
		depth = p.NetworkDepth
	}

	start := time.Now()
	snapshot, err := p.Source.Network(ctx, data.CompanyID, depth)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return fmt.Errorf("failed to load network: %w", err)
	}

	g, skipped, err := graph.FromSnapshot(*snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPermanent, err)
	}
	for _, s := range skipped {
		logger.Warn("[Worker] Skipping edge label", "source", s.Edge.Source, "target", s.Edge.Target, "label", s.Edge.Label)
	}
	metrics.SkippedLabelsTotal.Add(float64(len(skipped)))
	anomalies := graph.CheckCapTables(g)
	for _, a := range anomalies {
		logger.Warn("[Worker] Cap table above 100%", "node", a.NodeID, "total", a.Total, "owners", a.Owners)
	}

	solveStart := time.Now()
	rows, res, err := solver.OwnerRows(ctx, g, data.CompanyID)
	metrics.ObserveSolve(solver.Strategy(), time.Since(solveStart), res, err)
	if err != nil {
		if errors.Is(err, graph.ErrUnknownTarget) ||
			errors.Is(err, graph.ErrSingularSystem) ||
			errors.Is(err, graph.ErrPathLimitExceeded) ||
			errors.Is(err, graph.ErrDiverged) {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return err
	}
	if !res.Converged {
		logger.Warn("[Worker] Solver did not converge", "job_id", data.JobID, "iterations", res.Iterations, "delta", res.Delta)
	}

	doc := ReportDocument{
		JobID:       data.JobID,
		CompanyID:   data.CompanyID,
		CompanyName: g.Name(data.CompanyID),
		Strategy:    string(res.Strategy),
		Depth:       depth,
		GeneratedAt: time.Now().UTC(),
		Owners:      rows,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Paths:       res.Paths,
		Skipped:     SkippedLabels(skipped),
		Anomalies:   anomalies,
	}

	key := storage.ReportKey(data.CompanyID, data.JobID)
	if err := p.Objects.PutJSON(ctx, key, doc); err != nil {
		return err
	}
	if err := p.Reports.CompleteReport(ctx, data.JobID, key); err != nil {
		return err
	}

	elapsed := time.Since(start)
	if p.Timings != nil {
		if err := timing.AddReportTime(ctx, p.Timings, g.Len(), elapsed); err != nil {
			logger.Warn("[Worker] Failed to record report time", "err", err)
		}
	}
	metrics.ReportsTotal.WithLabelValues(string(store.ReportCompleted)).Inc()
	p.publishEvent(ReportEvent{JobID: data.JobID, CompanyID: data.CompanyID, Status: string(store.ReportCompleted), ObjectKey: key})

	logger.Info("[Worker] Report completed", "job_id", data.JobID, "company_id", data.CompanyID, "owners", len(rows), "duration", elapsed)
	return nil
}

func (p *ReportProcessor) publishEvent(ev ReportEvent) {
	if p.Events == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := PublishTopic(p.Events, "report."+ev.Status, body); err != nil {
		logger.Warn("[Worker] Failed to publish report event", "job_id", ev.JobID, "err", err)
	}
}
