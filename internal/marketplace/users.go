package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
)

// Login exchanges credentials for a token. It bypasses the session
// interceptor, so a 401 reports bad credentials.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var res LoginResult
	err := c.api.DoAnonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/users/login",
		Body:   creds,
	}, &res)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return LoginResult{}, fmt.Errorf("login: response carried no token")
	}
	return res, nil
}

// Register creates an account. The caller logs in separately.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	err := c.api.DoAnonymous(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/users/register",
		Body:   reg,
	}, nil)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Users lists every account. Administrators only.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/users"}, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser patches a user. The API may answer with an empty body, in
// which case the returned user is zero.
func (c *Client) UpdateUser(ctx context.Context, id string, up UserUpdate) (User, error) {
	p, err := pathID(id)
	if err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	var u User
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: "/users/" + p, Body: up}, &u); err != nil {
		return User{}, fmt.Errorf("update user %s: %w", id, err)
	}
	return u, nil
}

// DeleteUser removes an account. Administrators only.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: "/users/" + p}, nil); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

// Favorites lists the current user's favorite flats.
func (c *Client) Favorites(ctx context.Context) ([]Flat, error) {
	var flats []Flat
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/favorites"}, &flats); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return flats, nil
}

// ToggleFavorite adds flatID to the favorites, or removes it when present.
func (c *Client) ToggleFavorite(ctx context.Context, flatID string) error {
	p, err := pathID(flatID)
	if err != nil {
		return fmt.Errorf("toggle favorite: %w", err)
	}
	err = c.api.Do(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/users/favorites/" + p,
		Body:   struct{}{},
	}, nil)
	if err != nil {
		return fmt.Errorf("toggle favorite %s: %w", flatID, err)
	}
	return nil
}
