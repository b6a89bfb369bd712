package dailylimit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the daily-limit routes on an authenticated group.
func RegisterRoutes(authed *echo.Group, h *Handler) {
	authed.GET("/limits", h.Status)
	authed.GET("/limits/history", h.History)
}
