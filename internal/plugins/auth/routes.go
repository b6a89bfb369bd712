package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/middleware"
)

// RegisterRoutes sets up all auth routes on the /api/v1 group. Register and
// login are public; the rest require a valid session. The RequireAuth
// middleware is exported separately for other plugins to use on their
// route groups.
//
// Credential endpoints are rate-limited to slow brute-force and credential
// stuffing attacks: 10 attempts per IP per minute for login, 5 for register.
func RegisterRoutes(api *echo.Group, h *Handler, service AuthService) {
	g := api.Group("/auth")

	// Public routes -- no auth required.
	g.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))

	// Authenticated routes.
	authed := g.Group("", RequireAuth(service))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.PUT("/password", h.ChangePassword)
	authed.DELETE("/account", h.DeleteAccount)
}
