package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func TestNew_ExpiryIsEarlierOfTokenAndTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	short := signedToken(t, now.Add(time.Hour))
	s := New(short, core.User{ID: "u1"}, DefaultTTL, now)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())

	long := signedToken(t, now.Add(30*24*time.Hour))
	s = New(long, core.User{ID: "u1"}, DefaultTTL, now)
	assert.Equal(t, now.Add(DefaultTTL), s.ExpiresAt)

	// Opaque tokens fall back to the TTL.
	s = New("opaque", core.User{}, time.Hour, now)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	assert.NotEmpty(t, s.ID)
	assert.NotEqual(t, s.ID, New("opaque", core.User{}, time.Hour, now).ID)
}

func TestCookie(t *testing.T) {
	s := Session{ID: "0b8f7f2e-2f5e-4a8e-9a53-9b8f7c0b6d1e", ExpiresAt: time.Now().Add(time.Hour)}
	c := Cookie(s, true)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	assert.Equal(t, s.ID, IDFromRequest(r))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc/passwd"})
	assert.Empty(t, IDFromRequest(bad))

	assert.Equal(t, -1, ClearCookie(false).MaxAge)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithContext(context.Background(), Session{ID: "abc"})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "abc", s.ID)
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, store Store, setNow func(time.Time)) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	setNow(now)

	live := Session{ID: "live", Token: "tok", User: core.User{ID: "u1", Name: "Ada"}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := Session{ID: "stale", Token: "old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, stale))

	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "Ada", got.User.Name)

	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.UpdateUser(ctx, "live", core.User{ID: "u1", Name: "Ada L."}))
	got, err = store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.User.Name)
	assert.ErrorIs(t, store.UpdateUser(ctx, "missing", core.User{}), ErrNotFound)

	setNow(now.Add(2 * time.Hour))
	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	setNow(now)
	_, err = store.Get(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound, "DeleteExpired should have removed the live session once it expired")

	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Delete(ctx, "live"))
	_, err = store.Get(ctx, "live")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, "live"), "deleting twice is not an error")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store, func(now time.Time) { store.now = func() time.Time { return now } })
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions", "finboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	storeContract(t, store, func(now time.Time) { store.now = func() time.Time { return now } })
	require.NoError(t, store.Ping(context.Background()))
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finboard.db")
	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(Config{Type: MemoryBackend}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(Config{Type: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewStore(Config{Type: SQLiteBackend}, nil)
	assert.Error(t, err)

	s, err = NewStore(Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "s.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	assert.True(t, SQLiteBackend.IsValid())
	assert.False(t, BackendType("sheets").IsValid())
	assert.Len(t, BackendTypes(), 2)
}
