package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/store"
)

type reportBook struct {
	mu      sync.Mutex
	reports map[string]store.Report
	now     func() time.Time
}

func newReportBook() *reportBook {
	return &reportBook{reports: map[string]store.Report{}, now: time.Now}
}

func (s *Source) CreateReport(ctx context.Context, report *store.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	book := s.reports
	book.mu.Lock()
	defer book.mu.Unlock()

	if _, ok := book.reports[report.ID]; ok {
		return fmt.Errorf("report %s already exists", report.ID)
	}
	if report.Status == "" {
		report.Status = store.ReportPending
	}
	now := book.now()
	report.CreatedAt, report.UpdatedAt = now, now
	book.reports[report.ID] = *report
	return nil
}

func (s *Source) GetReport(ctx context.Context, id string) (*store.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book := s.reports
	book.mu.Lock()
	defer book.mu.Unlock()

	r, ok := book.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: report %s", store.ErrNotFound, id)
	}
	return &r, nil
}

func (s *Source) update(ctx context.Context, id string, fn func(r *store.Report)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	book := s.reports
	book.mu.Lock()
	defer book.mu.Unlock()

	r, ok := book.reports[id]
	if !ok {
		return fmt.Errorf("%w: report %s", store.ErrNotFound, id)
	}
	fn(&r)
	r.UpdatedAt = book.now()
	book.reports[id] = r
	return nil
}

func (s *Source) MarkReportRunning(ctx context.Context, id string) error {
	return s.update(ctx, id, func(r *store.Report) {
		r.Status = store.ReportRunning
		r.Error = ""
	})
}

func (s *Source) CompleteReport(ctx context.Context, id, objectKey string) error {
	return s.update(ctx, id, func(r *store.Report) {
		now := s.reports.now()
		r.Status = store.ReportCompleted
		r.ObjectKey = objectKey
		r.Error = ""
		r.CompletedAt = &now
	})
}

func (s *Source) FailReport(ctx context.Context, id, reason string) error {
	return s.update(ctx, id, func(r *store.Report) {
		now := s.reports.now()
		r.Status = store.ReportFailed
		r.Error = reason
		r.CompletedAt = &now
	})
}

func (s *Source) StaleReports(ctx context.Context, olderThan time.Duration) ([]store.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book := s.reports
	book.mu.Lock()
	defer book.mu.Unlock()

	cutoff := book.now().Add(-olderThan)
	var out []store.Report
	for _, r := range book.reports {
		if (r.Status == store.ReportPending || r.Status == store.ReportRunning) && r.UpdatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}
