package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

const (
	// CookieName holds the session token in browsers
	CookieName = "session"
	issuer     = "residenthub"
)

var (
	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid token")
)

// SessionClaims is the payload of a session token
type SessionClaims struct {
	ResidentID int64       `json:"rid"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       models.Role `json:"role"`
	Registered bool        `json:"registered"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the service caller
func (c *SessionClaims) Actor() *service.Actor {
	return &service.Actor{
		ResidentID: c.ResidentID,
		Email:      c.Email,
		Name:       c.Name,
		Role:       c.Role,
		Registered: c.Registered,
	}
}

// IdentityClaims is what the OAuth gateway asserts about a signed-in user
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Manager issues and verifies tokens
type Manager struct {
	sessionSecret  []byte
	identitySecret []byte
	ttl            time.Duration
	now            func() time.Time
}

// NewManager creates a token manager. identitySecret is shared with the
// OAuth gateway that signs identity tokens.
func NewManager(sessionSecret, identitySecret string, ttl time.Duration) *Manager {
	return &Manager{
		sessionSecret:  []byte(sessionSecret),
		identitySecret: []byte(identitySecret),
		ttl:            ttl,
		now:            time.Now,
	}
}

// Issue signs a session token for the resident
func (m *Manager) Issue(r *models.Resident) (string, time.Time, error) {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := &SessionClaims{
		ResidentID: r.ID,
		Email:      r.Email,
		Name:       r.DisplayName(),
		Role:       r.Role,
		Registered: r.Registered,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   r.Email,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.sessionSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expires, nil
}

func hmacKey(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}
}

// ParseSession validates a session token
func (m *Manager) ParseSession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, hmacKey(m.sessionSecret))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Issuer != issuer || claims.ResidentID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyIdentity validates an identity token from the OAuth gateway
func (m *Manager) VerifyIdentity(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, hmacKey(m.identitySecret))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: identity token has no expiry", ErrInvalidToken)
	}
	claims.Email = models.NormalizeEmail(claims.Email)
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: identity token has no email", ErrInvalidToken)
	}
	return claims, nil
}

// TokenFromRequest reads the session cookie, then the bearer header
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), nil
	}
	return "", ErrNoToken
}

// SetCookie stores the session token in an HTTP-only cookie
func SetCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type actorKey struct{}

// WithActor attaches the caller to ctx
func WithActor(ctx context.Context, actor *service.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the caller attached by WithActor, or nil
func ActorFrom(ctx context.Context) *service.Actor {
	actor, _ := ctx.Value(actorKey{}).(*service.Actor)
	return actor
}
