package journal

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the journal entry routes on an authenticated group.
func RegisterRoutes(authed *echo.Group, h *Handler) {
	authed.GET("/entries", h.List)
	authed.POST("/entries", h.Create)
	authed.GET("/entries/:id", h.Get)
	authed.PUT("/entries/:id", h.Update)
	authed.DELETE("/entries/:id", h.Delete)
}
