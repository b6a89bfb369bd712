package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/plugins/auth"
	"github.com/daybook-app/daybook/internal/plugins/dailylimit"
	"github.com/daybook-app/daybook/internal/plugins/export"
	"github.com/daybook-app/daybook/internal/plugins/journal"
	"github.com/daybook-app/daybook/internal/plugins/seed"
)

// RegisterRoutes builds every plugin's repository, service, and handler, and
// wires their routes under /api/v1. This is the single place where all
// routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo
	limitLoc := a.Config.Limits.Location()

	// Health check endpoint for Docker health monitoring. Verifies the
	// dependencies the app actually needs, not just that the process is up.
	e.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unreachable"})
		}
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "redis unreachable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	// --- auth plugin ---
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(api, auth.NewHandler(authService), authService)

	// Everything below requires a valid session.
	authed := api.Group("", auth.RequireAuth(authService))

	// --- dailylimit plugin ---
	historyRepo := dailylimit.NewHistoryRepository()
	limitService := dailylimit.NewService(historyRepo, a.DB, limitLoc)
	dailylimit.RegisterRoutes(authed, dailylimit.NewHandler(limitService))

	// --- journal plugin ---
	// The entry repository shares the history repository so limit checks and
	// history marks run inside the entry mutation transaction.
	entryRepo := journal.NewEntryRepository(a.DB, historyRepo, limitLoc)
	entryService := journal.NewEntryService(entryRepo, limitLoc)
	journal.RegisterRoutes(authed, journal.NewHandler(entryService))

	// --- export plugin ---
	exportService := export.NewService(entryService)
	export.RegisterRoutes(authed, export.NewHandler(exportService))

	// --- seed plugin (development only) ---
	if a.Config.IsDevelopment() {
		seedService := seed.NewService(entryService)
		seed.RegisterRoutes(authed, seed.NewHandler(seedService))
	}
}
