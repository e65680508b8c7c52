package queue

import (
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
)

type QueueReportMsg struct {
	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`
	Depth     int    `json:"depth"`
	Strategy  string `json:"strategy"`
}

// ReportEvent is published on the events exchange under "report.<status>".
type ReportEvent struct {
	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`
	Status    string `json:"status"`
	ObjectKey string `json:"object_key,omitempty"`
	Error     string `json:"error,omitempty"`
}

type SkippedLabel struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// ReportDocument is the JSON object uploaded for a finished report.
type ReportDocument struct {
	JobID       string                  `json:"job_id"`
	CompanyID   string                  `json:"company_id"`
	CompanyName string                  `json:"company_name"`
	Strategy    string                  `json:"strategy"`
	Depth       int                     `json:"depth"`
	GeneratedAt time.Time               `json:"generated_at"`
	Owners      []common.OwnershipRow   `json:"owners"`
	Iterations  int                     `json:"iterations,omitempty"`
	Converged   bool                    `json:"converged"`
	Paths       int                     `json:"paths,omitempty"`
	Skipped     []SkippedLabel          `json:"skipped,omitempty"`
	Anomalies   []graph.CapTableAnomaly `json:"anomalies,omitempty"`
}

func SkippedLabels(skipped []graph.SkippedEdge) []SkippedLabel {
	out := make([]SkippedLabel, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, SkippedLabel{Source: s.Edge.Source, Target: s.Edge.Target, Label: s.Edge.Label})
	}
	return out
}
