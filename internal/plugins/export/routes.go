package export

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the export routes on an authenticated group.
func RegisterRoutes(authed *echo.Group, h *Handler) {
	authed.GET("/export", h.Export)
}
