package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func GetCompaniesHandler(c echo.Context) error {
	companies, err := app(c).Source.Companies(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, companies)
}
