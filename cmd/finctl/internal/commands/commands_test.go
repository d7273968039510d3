package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeBackend answers the handful of endpoints finctl uses.
func fakeBackend(t *testing.T, token string) *httptest.Server {
	t.Helper()
	write := func(w http.ResponseWriter, status int, body map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	authed := func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer "+token }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret1" {
			write(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"token": token,
			"user":  map[string]any{"_id": "u1", "name": "Ada", "email": in["email"]},
		}})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			write(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token expired"})
			return
		}
		write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"user": map[string]any{"_id": "u1", "name": "Ada", "email": "ada@example.com", "currency": "EUR", "timezone": "Europe/Rome"},
		}})
	})
	mux.HandleFunc("GET /transactions", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			write(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		if r.URL.Query().Get("type") == "income" {
			write(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "boom"})
			return
		}
		write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"transactions": []map[string]any{{
				"_id": "t1", "title": "Groceries", "amount": 42.5, "type": "expense",
				"category": map[string]any{"_id": "c1", "name": "Food"},
				"date":     "2024-03-05T00:00:00Z",
			}},
			"pagination": map[string]any{"current": 1, "pages": 1, "total": 1, "limit": 10},
		}})
	})
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"categories": []map[string]any{{"_id": "c1", "name": "Food", "type": "expense"}},
		}})
	})
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["category"] != "c1" {
			write(w, http.StatusBadRequest, map[string]any{"success": false, "message": "bad category"})
			return
		}
		in["_id"] = "t2"
		in["date"] = in["date"].(string) + "T00:00:00Z"
		write(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"transaction": in}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, tokenFile, apiURL, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--api", apiURL, "--token-file", tokenFile, "--currency", "USD"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestLoginStoresTokenAndWhoami(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	srv := fakeBackend(t, token)
	tokenFile := filepath.Join(t.TempDir(), "token")

	out, err := run(t, tokenFile, srv.URL, "secret1\n", "login", "--email", "ADA@example.com")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Logged in as Ada <ada@example.com>") {
		t.Errorf("login output = %q", out)
	}

	info, err := os.Stat(tokenFile)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	out, err = run(t, tokenFile, srv.URL, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "Currency: EUR") {
		t.Errorf("whoami output = %q", out)
	}
}

func TestLoginRejectedShowsBackendMessage(t *testing.T) {
	srv := fakeBackend(t, "tok")
	tokenFile := filepath.Join(t.TempDir(), "token")

	_, err := run(t, tokenFile, srv.URL, "", "login", "--email", "ada@example.com", "--password", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Fatalf("err = %v, want the backend message", err)
	}
	if _, statErr := os.Stat(tokenFile); !os.IsNotExist(statErr) {
		t.Error("no token should be stored after a failed login")
	}
}

func TestTxList(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	srv := fakeBackend(t, token)
	tokenFile := filepath.Join(t.TempDir(), "token")
	if err := (tokenStore{path: tokenFile}).Save(token); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, tokenFile, srv.URL, "", "tx", "list")
	if err != nil {
		t.Fatalf("tx list: %v", err)
	}
	for _, want := range []string{"Groceries", "Food", "-$42.50", "t1", "Page 1 of 1, 1 transactions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, err = run(t, tokenFile, srv.URL, "", "tx", "list", "--type", "income")
	if err == nil || err.Error() != "Server error. Please try again later." {
		t.Errorf("5xx err = %v, want the generic server message", err)
	}
}

func TestTxAddResolvesCategoryByName(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	srv := fakeBackend(t, token)
	tokenFile := filepath.Join(t.TempDir(), "token")
	if err := (tokenStore{path: tokenFile}).Save(token); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, tokenFile, srv.URL, "", "tx", "add",
		"--title", "Lunch", "--amount", "9,90", "--category", "food", "--date", "2024-03-06")
	if err != nil {
		t.Fatalf("tx add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created t2") {
		t.Errorf("output = %q", out)
	}

	_, err = run(t, tokenFile, srv.URL, "", "tx", "add",
		"--title", "Lunch", "--amount", "9.90", "--category", "Travel")
	if err == nil || !strings.Contains(err.Error(), "category") {
		t.Errorf("unknown category err = %v", err)
	}
}

func TestUnauthorizedForgetsToken(t *testing.T) {
	srv := fakeBackend(t, "the-real-token")
	tokenFile := filepath.Join(t.TempDir(), "token")
	if err := (tokenStore{path: tokenFile}).Save("stale"); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, tokenFile, srv.URL, "", "whoami")
	if err != ErrSessionExpired {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if _, statErr := os.Stat(tokenFile); !os.IsNotExist(statErr) {
		t.Error("token file should be removed after a 401")
	}
}

func TestTokenStoreLoad(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	s := tokenStore{path: filepath.Join(dir, "missing"), now: func() time.Time { return now }}
	if _, err := s.Load(); err != ErrNotLoggedIn {
		t.Errorf("missing file err = %v, want ErrNotLoggedIn", err)
	}

	s.path = filepath.Join(dir, "expired")
	if err := s.Save(signedToken(t, now.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); err != ErrSessionExpired {
		t.Errorf("expired token err = %v, want ErrSessionExpired", err)
	}

	s.path = filepath.Join(dir, "opaque")
	if err := s.Save("not-a-jwt"); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Load(); err != nil || got != "not-a-jwt" {
		t.Errorf("opaque token = %q, %v", got, err)
	}
}
