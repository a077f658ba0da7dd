// Package routes holds helpers shared by the HTTP handlers.
package routes

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/fern/pkg/context"
)

// ParseID reads a UUID path parameter and returns it in canonical form.
func ParseID(c echo.Context, param string) (string, error) {
	raw := c.Param(param)
	if raw == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return id.String(), nil
}

// GetUserID returns the acting user, or 401 when the request carries none.
func GetUserID(c echo.Context) (string, error) {
	userID := appctx.GetUserID(c.Request().Context())
	if userID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return userID, nil
}

// Bind decodes the request body into v.
func Bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// SuccessResponse writes data as a 200
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse writes data as a 201
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}
