package routes

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/backend"
	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	"github.com/OFFIS-RIT/stakegraph/internal/timing"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/labstack/echo/v4"
)

// CreateReportHandler enqueues an asynchronous effective ownership report.
func CreateReportHandler(c echo.Context) error {
	type createReportBody struct {
		CompanyID string `json:"company_id" validate:"required"`
		Depth     int    `json:"depth" validate:"min=0,max=64"`
		Strategy  string `json:"strategy" validate:"omitempty,oneof=fixed_point paths linear"`
	}

	type createReportResponse struct {
		JobID  string             `json:"job_id"`
		Status store.ReportStatus `json:"status"`
	}

	body := new(createReportBody)
	if err := c.Bind(body); err != nil {
		return invalidRequest(c, err)
	}
	body.CompanyID = util.NormalizeID(body.CompanyID)
	if err := c.Validate(body); err != nil {
		return invalidRequest(c, err)
	}

	a := app(c)
	if a.Reports == nil || a.Queue == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Reports are not configured")
	}

	ctx := c.Request().Context()
	if _, err := a.Source.Neighborhood(ctx, body.CompanyID, false, false); err != nil {
		return handleError(c, err)
	}

	strategy := a.Solver.Strategy()
	if body.Strategy != "" {
		strategy = graph.Strategy(body.Strategy)
	}
	depth := backend.ClampDepth(body.Depth, a.NetworkDepth)

	report, err := queue.EnqueueReport(ctx, a.Queue, a.Reports, body.CompanyID, depth, strategy)
	if err != nil {
		return handleError(c, err)
	}
	logger.Info("[Server] Report enqueued", "job_id", report.ID, "company_id", body.CompanyID)

	return c.JSON(http.StatusAccepted, createReportResponse{JobID: report.ID, Status: report.Status})
}

// GetReportHandler returns the state of a report, a download link once it
// has completed and a duration estimate while it is still open.
func GetReportHandler(c echo.Context) error {
	type reportResponse struct {
		*store.Report
		DownloadURL         string `json:"download_url,omitempty"`
		EstimatedDurationMs *int64 `json:"estimated_duration_ms,omitempty"`
	}

	a := app(c)
	if a.Reports == nil {
		return jsonError(c, http.StatusServiceUnavailable, "Reports are not configured")
	}

	ctx := c.Request().Context()
	report, err := a.Reports.GetReport(ctx, c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}

	res := reportResponse{Report: report}
	switch report.Status {
	case store.ReportCompleted:
		if a.Objects != nil && report.ObjectKey != "" {
			link, err := a.Objects.GenerateDownloadLink(ctx, report.ObjectKey)
			if err != nil {
				logger.Error("[Server] Failed to generate download link", "job_id", report.ID, "err", err)
			} else {
				res.DownloadURL = link
			}
		}
	case store.ReportPending, store.ReportRunning:
		if a.Timings != nil {
			if ms, err := timing.PredictReportTime(ctx, a.Timings, 0); err == nil && ms > 0 {
				remaining := ms - time.Since(report.CreatedAt).Milliseconds()
				res.EstimatedDurationMs = &remaining
			}
		}
	}

	return c.JSON(http.StatusOK, res)
}
