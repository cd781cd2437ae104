package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/focusplus/focus-backend/internal/auth"
	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/http/middleware"
)

// AuthService defines the Google OAuth login operations consumed by HTTP
// handlers.
type AuthService interface {
	// LoginURL builds the Google consent redirect URL for a state nonce.
	LoginURL(state string) (string, error)
	// CompleteLogin exchanges the authorization code, upserts the user,
	// and returns a signed access token for them.
	CompleteLogin(ctx context.Context, code string) (*domain.User, string, error)
	// CookieMode reports whether tokens are delivered as httpOnly cookies
	// instead of a JSON body.
	CookieMode() bool
	// CookieName is the access token cookie name (cookie mode only).
	CookieName() string
	// CookieSecure reports whether auth cookies require HTTPS.
	CookieSecure() bool
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL() time.Duration
}

// stateCookie carries the OAuth state nonce between redirect and callback.
const stateCookie = "focus_oauth_state"

// LoginResponse is the JSON envelope for a completed login (bearer mode).
type LoginResponse struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// LoginUser is the safe public projection of the logged-in user.
type LoginUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	TotalXP        int64  `json:"totalXp"`
}

// GoogleLogin godoc
// @ID          googleLogin
// @Summary     Start Google OAuth login
// @Description Redirects the browser to the Google consent screen. An opaque
// @Description state nonce is set as a short-lived cookie and verified on
// @Description callback.
// @Tags        Auth
// @Success     302  {string}  string  "Redirect to Google"
// @Failure     503  {object}  handlers.ErrorResponse  "Login not configured"
// @Router      /auth/google [get]
func (h *Handlers) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	target, err := h.authSvc.LoginURL(state)
	if err != nil {
		if errors.Is(err, auth.ErrLoginDisabled) {
			fail(c, http.StatusServiceUnavailable, ErrCodeLoginFailed, "google login is not configured")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, "login failed")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int((10 * time.Minute).Seconds()), "/", "", h.authSvc.CookieSecure(), true)
	c.Redirect(http.StatusFound, target)
}

// GoogleCallback godoc
// @ID          googleCallback
// @Summary     Complete Google OAuth login
// @Description Verifies the state nonce, exchanges the authorization code,
// @Description upserts the Google account as a local user, and delivers a
// @Description signed access token (JSON body in bearer mode, httpOnly
// @Description cookie in cookie mode).
// @Tags        Auth
// @Produce     json
// @Param       code   query  string  true   "Authorization code from Google"
// @Param       state  query  string  true   "State nonce from the login redirect"
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing code or state mismatch"
// @Failure     401  {object}  handlers.ErrorResponse  "Code exchange rejected"
// @Router      /auth/google/callback [get]
func (h *Handlers) GoogleCallback(c *gin.Context) {
	ctx := c.Request.Context()

	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing authorization code")
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "state mismatch")
		return
	}
	// One-shot nonce.
	c.SetCookie(stateCookie, "", -1, "/", "", h.authSvc.CookieSecure(), true)

	user, token, err := h.authSvc.CompleteLogin(ctx, code)
	if err != nil {
		if errors.Is(err, auth.ErrLoginDisabled) {
			fail(c, http.StatusServiceUnavailable, ErrCodeLoginFailed, "google login is not configured")
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Msg("google code exchange failed")
		fail(c, http.StatusUnauthorized, ErrCodeLoginFailed, "login failed")
		return
	}

	resp := LoginResponse{
		Token: token,
		User: LoginUser{
			ID:             user.ID,
			Name:           user.Name,
			Email:          user.Email,
			ProfilePicture: user.ProfilePicture,
			TotalXP:        user.TotalXP,
		},
	}

	if h.authSvc.CookieMode() {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.authSvc.CookieName(), token, int(h.authSvc.TokenTTL().Seconds()), "/", "", h.authSvc.CookieSecure(), true)
		resp.Token = "" // the cookie is the credential
	}
	ok(c, http.StatusOK, resp)
}

// Logout godoc
// @ID          logout
// @Summary     Clear the auth cookie
// @Description Expires the access token cookie. A no-op in bearer mode,
// @Description where clients simply discard the token.
// @Tags        Auth
// @Success     204  "Logged out"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if h.authSvc.CookieMode() {
		c.SetCookie(h.authSvc.CookieName(), "", -1, "/", "", h.authSvc.CookieSecure(), true)
	}
	noContent(c)
}
