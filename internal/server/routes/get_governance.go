package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/stakegraph/internal/util"

	"github.com/labstack/echo/v4"
)

// GetGovernanceGraphHandler returns the persons holding roles on a company and
// their mandates elsewhere.
func GetGovernanceGraphHandler(c echo.Context) error {
	type governanceParams struct {
		CompanyID         string `query:"company_id" validate:"required"`
		MaxOtherCompanies int    `query:"max_other_companies" validate:"min=0,max=500"`
	}

	params := &governanceParams{MaxOtherCompanies: 50}
	if err := c.Bind(params); err != nil {
		return invalidRequest(c, err)
	}
	params.CompanyID = util.NormalizeID(params.CompanyID)
	if err := c.Validate(params); err != nil {
		return invalidRequest(c, err)
	}

	snapshot, err := app(c).Source.Governance(c.Request().Context(), params.CompanyID, params.MaxOtherCompanies)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, ToElements(snapshot))
}
