package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/daybook-app/daybook/internal/apperror"
)

// sessionCookieName is the HTTP cookie used to store the session token.
const sessionCookieName = "daybook_session"

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and write the JSON response. No
// business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// sessionResponse is returned by login and register: the user plus the raw
// token for clients that authenticate with a Bearer header instead of the
// cookie.
type sessionResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Register creates a new account (POST /api/v1/auth/register) and logs the
// user straight in.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	if msg := validatePassword(req.Password); msg != "" {
		return apperror.NewValidation(msg)
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	// Auto-login after successful registration.
	token, _, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		// Registration succeeded but session creation failed -- the client
		// can still log in normally.
		return c.JSON(http.StatusCreated, sessionResponse{User: user})
	}

	setSessionCookie(c, token)
	return c.JSON(http.StatusCreated, sessionResponse{User: user, Token: token})
}

// Login authenticates a user (POST /api/v1/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperror.NewBadRequest("username and password are required")
	}

	token, user, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setSessionCookie(c, token)
	return c.JSON(http.StatusOK, sessionResponse{User: user, Token: token})
}

// Logout destroys the session and clears the cookie (POST /api/v1/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	token := getSessionToken(c)
	if token != "" {
		// Destroy the session in Redis. Ignore errors -- the cookie
		// will be cleared regardless.
		_ = h.service.DestroySession(c.Request().Context(), token)
	}

	clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile (GET /api/v1/auth/me).
func (h *Handler) Me(c echo.Context) error {
	user, err := h.service.CurrentUser(c.Request().Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the user's password (PUT /api/v1/auth/password).
func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.CurrentPassword == "" {
		return apperror.NewBadRequest("current password is required")
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		return apperror.NewValidation(msg)
	}

	if err := h.service.ChangePassword(c.Request().Context(), GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount permanently removes the account and all journal data
// (DELETE /api/v1/auth/account). Requires the current password.
func (h *Handler) DeleteAccount(c echo.Context) error {
	var req DeleteAccountRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Password == "" {
		return apperror.NewBadRequest("password is required")
	}

	if err := h.service.DeleteAccount(c.Request().Context(), GetUserID(c), req.Password); err != nil {
		return err
	}

	clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// --- Cookie helpers ---

// setSessionCookie sets the session cookie on the response. The cookie is
// HttpOnly (JS can't read it), Secure if behind TLS, and SameSite=Lax.
func setSessionCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   30 * 24 * 60 * 60, // 30 days in seconds
	})
}

// clearSessionCookie removes the session cookie by setting MaxAge to -1.
func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// --- Validation helpers ---

// validatePassword enforces password length bounds. Returns an error
// message or empty string.
func validatePassword(password string) string {
	if password == "" {
		return "password is required"
	}
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(password) > 128 {
		return "password must be at most 128 characters"
	}
	return ""
}
