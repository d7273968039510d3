// Package session keeps the signed-in state of dashboard visitors: the
// backend bearer token and the user it belongs to, keyed by an opaque id
// stored in a cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finboard/internal/api"
	"finboard/internal/core"
)

// CookieName is the cookie carrying the session id.
const CookieName = "finboard_session"

// DefaultTTL matches the lifetime of the backend login cookie.
const DefaultTTL = 7 * 24 * time.Hour

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string
	Token     string
	User      core.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get on an expired session deletes it and returns
// ErrNotFound.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	UpdateUser(ctx context.Context, id string, user core.User) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int, error)
	Close() error
}

// New builds a session for a freshly issued token. It expires at the
// token's exp claim or after ttl, whichever comes first.
func New(token string, user core.User, ttl time.Duration, now time.Time) Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	expires := now.Add(ttl)
	if exp, err := api.TokenExpiry(token); err == nil && exp.Before(expires) {
		expires = exp
	}
	return Session{
		ID:        uuid.NewString(),
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: expires,
	}
}

// Cookie returns the cookie that binds a browser to s.
func Cookie(s Session, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie in the browser.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IDFromRequest returns the session id carried by r, if any.
func IDFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

type ctxKey struct{}

// WithContext stores s in ctx for handlers downstream of the auth middleware.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
