package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
)

// ErrNotFound is returned when the requested company or account does not
// exist in the source.
var ErrNotFound = errors.New("not found")

// GraphSource defines the read side of an ownership graph store. It supplies
// the snapshots the solver and the HTTP API work on; it never computes
// effective ownership itself.
//
// Ownership edges carry percentage labels ("60%"), governance edges carry
// role labels ("Chair"). Snapshots never contain dangling edges.
type GraphSource interface {
	// Companies lists every company ordered by name.
	Companies(ctx context.Context) ([]common.Company, error)

	// Neighborhood returns a company with its direct owners and/or its direct
	// subsidiaries.
	Neighborhood(ctx context.Context, companyID string, includeHolders, includeSubs bool) (*common.Snapshot, error)

	// Network returns every ownership chain of at most maxDepth edges that ends
	// at the company.
	Network(ctx context.Context, companyID string, maxDepth int) (*common.Snapshot, error)

	// Governance returns the persons holding roles on the company together
	// with up to maxOtherCompanies of their other mandates.
	Governance(ctx context.Context, companyID string, maxOtherCompanies int) (*common.Snapshot, error)

	// TransferSubgraph returns the accounts reachable from seed in at most
	// hops transfers and every transfer touching them, capped at limit.
	TransferSubgraph(ctx context.Context, seed string, hops, limit int) (*common.TransferGraph, error)

	// TransferDegree counts the transfers into and out of an account.
	TransferDegree(ctx context.Context, accountID string) (*common.Degree, error)

	Close(ctx context.Context) error
}

// GraphWriter is implemented by sources that can be seeded.
type GraphWriter interface {
	Seed(ctx context.Context, data SampleData) error
}

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportRunning   ReportStatus = "running"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// Report is an asynchronous effective ownership computation. ObjectKey is
// set once the result has been uploaded.
type Report struct {
	ID          string       `json:"id"`
	CompanyID   string       `json:"company_id"`
	Strategy    string       `json:"strategy"`
	Depth       int          `json:"depth"`
	Status      ReportStatus `json:"status"`
	ObjectKey   string       `json:"object_key,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ReportRepository persists report jobs.
type ReportRepository interface {
	CreateReport(ctx context.Context, report *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	MarkReportRunning(ctx context.Context, id string) error
	CompleteReport(ctx context.Context, id, objectKey string) error
	FailReport(ctx context.Context, id, reason string) error
	// StaleReports lists pending or running reports not touched for olderThan.
	StaleReports(ctx context.Context, olderThan time.Duration) ([]Report, error)
}
