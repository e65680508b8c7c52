package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/server/middleware"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/labstack/echo/v4"
)

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

func invalidRequest(c echo.Context, err error) error {
	return jsonError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, graph.ErrUnknownTarget):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrMalformedGraph),
		errors.Is(err, graph.ErrSingularSystem),
		errors.Is(err, graph.ErrPathLimitExceeded),
		errors.Is(err, graph.ErrDiverged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
		return jsonError(c, status, "Internal server error")
	}
	return jsonError(c, status, err.Error())
}
