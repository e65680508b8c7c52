package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/common"

	"github.com/labstack/echo/v4"
)

// GetSubgraphHandler returns the transfer neighbourhood of an account as
// {nodes: [{id}], edges: [transfer]}. Hops outside 1..3 are clamped.
func GetSubgraphHandler(c echo.Context) error {
	type subgraphParams struct {
		Seed  string `query:"seed" validate:"required"`
		Hops  int    `query:"hops"`
		Limit int    `query:"limit" validate:"min=1,max=5000"`
	}

	type account struct {
		ID string `json:"id"`
	}

	type subgraphResponse struct {
		Nodes []account         `json:"nodes"`
		Edges []common.Transfer `json:"edges"`
	}

	params := &subgraphParams{Hops: 2, Limit: 300}
	if err := c.Bind(params); err != nil {
		return invalidRequest(c, err)
	}
	params.Seed = util.NormalizeID(params.Seed)
	if err := c.Validate(params); err != nil {
		return invalidRequest(c, err)
	}

	g, err := app(c).Source.TransferSubgraph(c.Request().Context(), params.Seed, params.Hops, params.Limit)
	if err != nil {
		return handleError(c, err)
	}

	res := subgraphResponse{
		Nodes: make([]account, 0, len(g.Accounts)),
		Edges: g.Transfers,
	}
	for _, id := range g.Accounts {
		res.Nodes = append(res.Nodes, account{ID: id})
	}
	return c.JSON(http.StatusOK, res)
}

func GetDegreeHandler(c echo.Context) error {
	d, err := app(c).Source.TransferDegree(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
