package journal

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/apperror"
	"github.com/daybook-app/daybook/internal/plugins/auth"
)

// Handler handles HTTP requests for journal entries. Handlers are thin: they
// bind the request, call the service, and write the JSON response.
type Handler struct {
	service EntryService
}

// NewHandler creates a new journal handler with the given service.
func NewHandler(service EntryService) *Handler {
	return &Handler{service: service}
}

// List returns all of the user's live entries with tags and moods attached
// (GET /api/v1/entries).
func (h *Handler) List(c echo.Context) error {
	entries, err := h.service.List(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// Get returns one entry with details (GET /api/v1/entries/:id).
func (h *Handler) Get(c echo.Context) error {
	entry, err := h.service.Get(c.Request().Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Create makes a new entry (POST /api/v1/entries). Consumes the daily
// create budget; a second create the same day gets a 429.
func (h *Handler) Create(c echo.Context) error {
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	entry, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), toInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// Update rewrites an entry and replaces its tags and moods
// (PUT /api/v1/entries/:id). Consumes the daily update budget.
func (h *Handler) Update(c echo.Context) error {
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	entry, err := h.service.Update(c.Request().Context(), auth.GetUserID(c), c.Param("id"), toInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Delete soft-deletes an entry (DELETE /api/v1/entries/:id). Consumes the
// daily delete budget.
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toInput(req EntryRequest) EntryInput {
	return EntryInput{
		Title:          req.Title,
		Content:        req.Content,
		PrimaryMood:    req.PrimaryMood,
		EntryDate:      req.EntryDate,
		Tags:           req.Tags,
		SecondaryMoods: req.SecondaryMoods,
	}
}
