package export

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/plugins/auth"
)

// Handler serves journal exports.
type Handler struct {
	service Service
}

// NewHandler creates a new export handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Export renders the user's journal as a download
// (GET /api/v1/export?format=json|markdown). Defaults to JSON.
func (h *Handler) Export(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "json"
	}

	session := auth.GetSession(c)
	result, err := h.service.Export(c.Request().Context(), session.UserID, session.Username, format)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, result.Filename))
	return c.Blob(http.StatusOK, result.ContentType, result.Content)
}
