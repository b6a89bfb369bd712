package seed

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/plugins/auth"
)

// Handler serves the seed endpoint.
type Handler struct {
	service Service
}

// NewHandler creates a new seed handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Seed fills the authenticated user's journal with demo entries
// (POST /api/v1/seed, development only).
func (h *Handler) Seed(c echo.Context) error {
	count, err := h.service.Seed(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]int{"created": count})
}
