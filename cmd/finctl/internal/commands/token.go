package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finboard/internal/api"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in, run: finctl login")
	ErrSessionExpired = errors.New("session expired, run: finctl login")
)

// tokenStore keeps the backend token in a single file readable only by
// the current user.
type tokenStore struct {
	path string
	now  func() time.Time
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".finctl", "token")
	}
	return filepath.Join(home, ".finctl", "token")
}

func (s tokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotLoggedIn
	}

	// tokens without exp are left for the backend to judge
	if exp, err := api.TokenExpiry(token); err == nil && !exp.After(s.now()) {
		_ = s.Clear()
		return "", ErrSessionExpired
	}
	return token, nil
}

func (s tokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s tokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
