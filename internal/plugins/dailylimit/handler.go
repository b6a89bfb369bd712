package dailylimit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/plugins/auth"
)

// Handler serves the daily-limit status endpoint.
type Handler struct {
	service Service
}

// NewHandler creates a new daily-limit handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Status returns today's remaining budgets (GET /api/v1/limits).
func (h *Handler) Status(c echo.Context) error {
	status, err := h.service.Status(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// History returns the user's recent consumed actions per kind
// (GET /api/v1/limits/history).
func (h *Handler) History(c echo.Context) error {
	activity, err := h.service.Recent(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, activity)
}
