package api

import (
	"context"
	"encoding/json"
	"net/http"

	"finboard/internal/core"
)

// AuthResult is what login and register answer with.
type AuthResult struct {
	User  core.User `json:"user"`
	Token string    `json:"token"`
}

type userData struct {
	User core.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, in core.Registration) (AuthResult, error) {
	var out AuthResult
	err := c.post(ctx, "/auth/register", in, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, in core.Credentials) (AuthResult, error) {
	var out AuthResult
	if err := c.post(ctx, "/auth/login", in, &out); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, &Error{Status: http.StatusBadGateway, Message: "login answer carried no token"}
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", nil, nil)
}

// Me returns the user the bound token belongs to.
func (c *Client) Me(ctx context.Context) (core.User, error) {
	var out userData
	err := c.get(ctx, "/auth/me", nil, &out)
	return out.User, err
}

func (c *Client) UpdatePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.put(ctx, "/auth/password", body, nil)
}

func (c *Client) Profile(ctx context.Context) (core.User, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/users/profile", nil, &raw); err != nil {
		return core.User{}, err
	}
	var u core.User
	err := unwrapKey(raw, "user", &u)
	return u, err
}

func (c *Client) UpdateProfile(ctx context.Context, in core.ProfileInput) (core.User, error) {
	var out userData
	err := c.put(ctx, "/users/profile", in, &out)
	return out.User, err
}

func (c *Client) UpdatePreferences(ctx context.Context, in core.PreferencesInput) (core.User, error) {
	var out userData
	err := c.put(ctx, "/users/preferences", in, &out)
	return out.User, err
}

// UploadAvatar stores an avatar given as a URL or data URL.
func (c *Client) UploadAvatar(ctx context.Context, avatarURL string) (core.User, error) {
	var out userData
	err := c.post(ctx, "/users/avatar", map[string]string{"avatarUrl": avatarURL}, &out)
	return out.User, err
}

// DeleteAccount sends the password in the DELETE body.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	return c.delete(ctx, "/users/account", map[string]string{"password": password}, nil)
}
