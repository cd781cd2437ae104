package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/config"
	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/repo"
)

// userinfoURL is the Google endpoint returning the logged-in profile.
// Overridable in tests.
var userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrLoginDisabled is returned when OAuth client credentials are not
// configured for this deployment.
var ErrLoginDisabled = errors.New("google login is not configured")

// Provider is the deployment's auth gate. It owns the OAuth client
// configuration, the signing secret, and the token delivery mode
// (bearer header or httpOnly cookie), and exposes the per-request
// verification middleware.
type Provider struct {
	cfg    config.AuthConfig
	db     *gorm.DB
	oauth  *oauth2.Config
	secret []byte
}

// NewProvider constructs the auth gate from configuration. The OAuth flow
// is optional (dev setups can mint tokens out of band); token verification
// always works as long as the secret is set.
func NewProvider(cfg config.AuthConfig, db *gorm.DB) *Provider {
	p := &Provider{
		cfg:    cfg,
		db:     db,
		secret: []byte(cfg.JWTSecret),
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		p.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	return p
}

// CookieMode reports whether this deployment delivers tokens via an
// httpOnly cookie instead of the Authorization header.
func (p *Provider) CookieMode() bool { return p.cfg.Mode == "cookie" }

// CookieName returns the configured auth cookie name.
func (p *Provider) CookieName() string { return p.cfg.CookieName }

// CookieSecure reports whether the auth cookie requires HTTPS.
func (p *Provider) CookieSecure() bool { return p.cfg.CookieSecure }

// TokenTTL returns the configured token lifetime.
func (p *Provider) TokenTTL() time.Duration { return p.cfg.TokenTTL }

// LoginURL builds the Google consent URL for the given anti-forgery state.
// The account chooser is always forced so switching accounts works.
func (p *Provider) LoginURL(state string) (string, error) {
	if p.oauth == nil {
		return "", ErrLoginDisabled
	}
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// googleUserinfo is the subset of the userinfo payload we consume.
type googleUserinfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// CompleteLogin exchanges the authorization code, fetches the Google
// profile, upserts the user row keyed by the external id, and returns the
// stored user together with a freshly signed token.
func (p *Provider) CompleteLogin(ctx context.Context, code string) (*domain.User, string, error) {
	if p.oauth == nil {
		return nil, "", ErrLoginDisabled
	}
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("oauth code exchange: %w", err)
	}

	info, err := p.fetchUserinfo(ctx, tok)
	if err != nil {
		return nil, "", err
	}
	if info.ID == "" {
		return nil, "", errors.New("userinfo response missing id")
	}

	user, err := repo.UpsertGoogleUser(ctx, p.db, repo.GoogleProfile{
		GoogleID: info.ID,
		Name:     info.Name,
		Email:    info.Email,
		Picture:  info.Picture,
	})
	if err != nil {
		return nil, "", fmt.Errorf("upsert user: %w", err)
	}

	token, err := p.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a bearer token for the given identity.
func (p *Provider) IssueToken(userID, email string) (string, error) {
	return issueToken(p.secret, userID, email, p.cfg.TokenTTL)
}

// Verify validates a raw token and returns its claims.
func (p *Provider) Verify(raw string) (*Claims, error) {
	return verifyToken(p.secret, raw)
}

func (p *Provider) fetchUserinfo(ctx context.Context, tok *oauth2.Token) (*googleUserinfo, error) {
	client := p.oauth.Client(ctx, tok)
	resp, err := client.Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: unexpected status %d", resp.StatusCode)
	}
	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}
