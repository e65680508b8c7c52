package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetCapTableHandler lists the direct owners and direct subsidiaries of a
// company with their parsed percentages.
func GetCapTableHandler(c echo.Context) error {
	type capTableParams struct {
		CompanyID string `query:"company_id" validate:"required"`
	}

	type capTableResponse struct {
		Company      common.Company          `json:"company"`
		Owners       []common.OwnershipRow   `json:"owners"`
		Subsidiaries []common.OwnershipRow   `json:"subsidiaries"`
		Total        float64                 `json:"total"`
		Skipped      []queue.SkippedLabel    `json:"skipped"`
		Anomalies    []graph.CapTableAnomaly `json:"anomalies,omitempty"`
	}

	params := new(capTableParams)
	if err := c.Bind(params); err != nil {
		return invalidRequest(c, err)
	}
	params.CompanyID = util.NormalizeID(params.CompanyID)
	if err := c.Validate(params); err != nil {
		return invalidRequest(c, err)
	}

	snapshot, err := app(c).Source.Neighborhood(c.Request().Context(), params.CompanyID, true, true)
	if err != nil {
		return handleError(c, err)
	}
	g, skipped, err := graph.FromSnapshot(*snapshot)
	if err != nil {
		return handleError(c, err)
	}
	for _, s := range skipped {
		logger.Warn("[Server] Skipping edge label", "source", s.Edge.Source, "target", s.Edge.Target, "label", s.Edge.Label)
	}

	owners := graph.CapTable(g, params.CompanyID)
	total := 0.0
	for _, e := range g.Incoming(params.CompanyID) {
		total += e.Weight
	}

	var anomalies []graph.CapTableAnomaly
	for _, a := range graph.CheckCapTables(g) {
		if a.NodeID == params.CompanyID {
			anomalies = append(anomalies, a)
		}
	}

	return c.JSON(http.StatusOK, capTableResponse{
		Company:      common.Company{ID: params.CompanyID, Name: g.Name(params.CompanyID)},
		Owners:       owners,
		Subsidiaries: graph.Subsidiaries(g, params.CompanyID),
		Total:        graph.RoundPercent(total),
		Skipped:      queue.SkippedLabels(skipped),
		Anomalies:    anomalies,
	})
}
