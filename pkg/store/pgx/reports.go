package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *Source) CreateReport(ctx context.Context, report *store.Report) error {
	if report.Status == "" {
		report.Status = store.ReportPending
	}
	err := s.conn.QueryRow(ctx, createReportSQL,
		report.ID, report.CompanyID, report.Strategy, report.Depth, string(report.Status),
	).Scan(&report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func scanReport(row pgxv5.Row) (*store.Report, error) {
	var (
		r         store.Report
		status    string
		objectKey *string
		reason    *string
	)
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.Strategy, &r.Depth, &status,
		&objectKey, &reason, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = store.ReportStatus(status)
	if objectKey != nil {
		r.ObjectKey = *objectKey
	}
	if reason != nil {
		r.Error = *reason
	}
	return &r, nil
}

func (s *Source) GetReport(ctx context.Context, id string) (*store.Report, error) {
	r, err := scanReport(s.conn.QueryRow(ctx, getReportSQL, id))
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, fmt.Errorf("%w: report %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return r, nil
}

func (s *Source) setReportStatus(ctx context.Context, id string, status store.ReportStatus, objectKey, reason *string) error {
	tag, err := s.conn.Exec(ctx, updateReportSQL, id, string(status), objectKey, reason)
	if err != nil {
		return fmt.Errorf("failed to mark report %s %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: report %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Source) MarkReportRunning(ctx context.Context, id string) error {
	return s.setReportStatus(ctx, id, store.ReportRunning, nil, nil)
}

func (s *Source) CompleteReport(ctx context.Context, id, objectKey string) error {
	return s.setReportStatus(ctx, id, store.ReportCompleted, &objectKey, nil)
}

func (s *Source) FailReport(ctx context.Context, id, reason string) error {
	return s.setReportStatus(ctx, id, store.ReportFailed, nil, &reason)
}

func (s *Source) StaleReports(ctx context.Context, olderThan time.Duration) ([]store.Report, error) {
	rows, err := s.conn.Query(ctx, staleReportsSQL, olderThan.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("failed to get stale reports: %w", err)
	}
	reports, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (store.Report, error) {
		r, err := scanReport(row)
		if err != nil {
			return store.Report{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale reports: %w", err)
	}
	return reports, nil
}

const reportColumns = `id, company_id, strategy, depth, status, object_key, error, created_at, updated_at, completed_at`

const createReportSQL = `
INSERT INTO ownership_reports (id, company_id, strategy, depth, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at;
`

const getReportSQL = `
SELECT ` + reportColumns + `
FROM ownership_reports
WHERE id = $1;
`

const updateReportSQL = `
UPDATE ownership_reports
SET status       = $2,
    object_key   = COALESCE($3, object_key),
    error        = $4,
    updated_at   = now(),
    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE NULL END
WHERE id = $1;
`

const staleReportsSQL = `
SELECT ` + reportColumns + `
FROM ownership_reports
WHERE status IN ('pending', 'running')
  AND updated_at < now() - ($1::bigint * interval '1 millisecond')
ORDER BY created_at;
`
