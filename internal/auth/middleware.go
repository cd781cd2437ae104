package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by the middleware for downstream handlers.
const (
	ctxKeyUserID = "userID"
	ctxKeyEmail  = "userEmail"
)

// UserID returns the authenticated user id stored by Middleware, or ""
// when the request did not pass through it.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Email returns the authenticated email stored by Middleware, or "".
func Email(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyEmail); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Middleware verifies the request's credentials and attaches the identity
// to the Gin context. The credential source depends on the deployment
// mode: the Authorization header ("bearer") or the auth cookie ("cookie").
// Absence or invalidity of credentials aborts with 401; the two sources
// are never mixed.
func (p *Provider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := p.credential(c)
		if raw == "" {
			unauthorized(c, "missing credentials")
			return
		}
		claims, err := p.Verify(raw)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyEmail, claims.Email)
		c.Next()
	}
}

// credential extracts the raw token from the deployment's single source.
func (p *Provider) credential(c *gin.Context) string {
	if p.CookieMode() {
		v, err := c.Cookie(p.cfg.CookieName)
		if err != nil {
			return ""
		}
		return v
	}
	return bearerToken(c.GetHeader("Authorization"))
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
