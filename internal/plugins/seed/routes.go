package seed

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the seed route on an authenticated group. The
// caller only invokes this in development mode.
func RegisterRoutes(authed *echo.Group, h *Handler) {
	authed.POST("/seed", h.Seed)
}
