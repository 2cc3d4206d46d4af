// Package oauth wires Google sign-in through go-pkgz/auth.
package oauth

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/logger"
	"github.com/go-pkgz/auth/v2/token"

	"flylow/models"
)

const (
	// ProviderGoogle is the go-pkgz provider name and the account provider.
	ProviderGoogle = models.ProviderGoogle

	// CompletePath receives the browser once the provider callback succeeded.
	CompletePath = "/api/auth/oauth/complete"

	issuer = "flylow"
)

// Sign-in page modes; they pick the failure message.
const (
	ModeSignIn = "signin"
	ModeSignUp = "signup"
)

var (
	ErrSecretRequired = errors.New("auth secret is required")
	ErrNotSignedIn    = errors.New("no provider identity on request")
)

// Config holds the OAuth settings.
type Config struct {
	Secret             string
	PublicURL          string
	GoogleClientID     string
	GoogleClientSecret string
	TokenDuration      time.Duration
	SecureCookies      bool
}

// Identity is what the provider tells us about the user.
type Identity struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
}

// Service exposes provider routes and reads identities from completed logins.
type Service struct {
	auth    *auth.Service
	enabled bool
}

// NewService configures go-pkgz/auth. Google is registered only when
// client credentials are present.
func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrSecretRequired
	}
	if cfg.TokenDuration <= 0 {
		cfg.TokenDuration = 5 * time.Minute
	}

	svc := auth.NewService(auth.Opts{
		SecretReader: token.SecretFunc(func(string) (string, error) {
			return cfg.Secret, nil
		}),
		TokenDuration:  cfg.TokenDuration,
		CookieDuration: cfg.TokenDuration,
		Issuer:         issuer,
		URL:            strings.TrimSuffix(cfg.PublicURL, "/"),
		SecureCookies:  cfg.SecureCookies,
		AvatarStore:    avatar.NewNoOp(),
		Logger: logger.Func(func(format string, args ...interface{}) {
			log.Printf("[oauth] "+format, args...)
		}),
	})

	enabled := cfg.GoogleClientID != "" && cfg.GoogleClientSecret != ""
	if enabled {
		svc.AddProvider(ProviderGoogle, cfg.GoogleClientID, cfg.GoogleClientSecret)
		log.Printf("[oauth] google sign-in enabled")
	}

	return &Service{auth: svc, enabled: enabled}, nil
}

// Enabled reports whether a provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// Handlers returns the /auth/... provider routes.
func (s *Service) Handlers() http.Handler {
	authHandler, _ := s.auth.Handlers()
	return authHandler
}

// Trace attaches the provider identity to the request when a login cookie is present.
func (s *Service) Trace(next http.Handler) http.Handler {
	m := s.auth.Middleware()
	return m.Trace(next)
}

// LoginURL starts a provider login that returns to the completion handler.
func LoginURL(mode string) string {
	if mode != ModeSignUp {
		mode = ModeSignIn
	}
	from := CompletePath + "?mode=" + mode
	return fmt.Sprintf("/auth/%s/login?from=%s", ProviderGoogle, url.QueryEscape(from))
}

// IdentityFromRequest reads the identity set by Trace.
func IdentityFromRequest(r *http.Request) (Identity, error) {
	user, err := token.GetUserInfo(r)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}
	if strings.TrimSpace(user.ID) == "" {
		return Identity{}, ErrNotSignedIn
	}
	return Identity{
		Provider:   ProviderGoogle,
		ExternalID: user.ID,
		Email:      user.Email,
		Name:       user.Name,
	}, nil
}

// FailureMessage is the sign-in page message for a failed provider login.
func FailureMessage(mode string) string {
	if mode == ModeSignUp {
		return "Failed to sign up with Google."
	}
	return "Failed to sign in with Google."
}
