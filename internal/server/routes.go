package server

import (
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/server/routes"
	"github.com/OFFIS-RIT/stakegraph/pkg/metrics"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	apiRoutes := e.Group("/api")

	// Ownership routes
	apiRoutes.GET("/ownership/companies", routes.GetCompaniesHandler)
	apiRoutes.GET("/ownership/graph", routes.GetOwnershipGraphHandler)
	apiRoutes.GET("/ownership/cap-table", routes.GetCapTableHandler)
	apiRoutes.GET("/ownership/effective", routes.GetEffectiveOwnershipHandler)
	apiRoutes.POST("/ownership/effective", routes.PostEffectiveOwnershipHandler)

	// Report routes
	apiRoutes.POST("/ownership/reports", routes.CreateReportHandler)
	apiRoutes.GET("/ownership/reports/:id", routes.GetReportHandler)

	// Governance routes
	apiRoutes.GET("/governance/full-graph", routes.GetGovernanceGraphHandler)

	// Transfer graph routes
	apiRoutes.GET("/graph/subgraph", routes.GetSubgraphHandler)
	apiRoutes.GET("/graph/degree/:id", routes.GetDegreeHandler)
}
