package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/util"

	"github.com/labstack/echo/v4"
)

func GetOwnershipGraphHandler(c echo.Context) error {
	type ownershipGraphParams struct {
		CompanyID      string `query:"company_id" validate:"required"`
		IncludeHolders bool   `query:"include_holders"`
		IncludeSubs    bool   `query:"include_subs"`
	}

	params := &ownershipGraphParams{IncludeHolders: true, IncludeSubs: true}
	if err := c.Bind(params); err != nil {
		return invalidRequest(c, err)
	}
	params.CompanyID = util.NormalizeID(params.CompanyID)
	if err := c.Validate(params); err != nil {
		return invalidRequest(c, err)
	}

	snapshot, err := app(c).Source.Neighborhood(c.Request().Context(), params.CompanyID, params.IncludeHolders, params.IncludeSubs)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, ToElements(snapshot))
}
