package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
)

// Flats lists the flats matching filter.
func (c *Client) Flats(ctx context.Context, filter FlatFilter) ([]Flat, error) {
	var flats []Flat
	err := c.api.Do(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/flats",
		Query:  filter.Query(),
	}, &flats)
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	return flats, nil
}

// Flat fetches one flat.
func (c *Client) Flat(ctx context.Context, id string) (Flat, error) {
	p, err := pathID(id)
	if err != nil {
		return Flat{}, fmt.Errorf("get flat: %w", err)
	}
	var f Flat
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/flats/" + p}, &f); err != nil {
		return Flat{}, fmt.Errorf("get flat %s: %w", id, err)
	}
	return f, nil
}

// CreateFlat publishes a flat owned by the current user.
func (c *Client) CreateFlat(ctx context.Context, in FlatInput) (Flat, error) {
	var f Flat
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/flats", Body: in}, &f); err != nil {
		return Flat{}, fmt.Errorf("create flat: %w", err)
	}
	return f, nil
}

// UpdateFlat replaces the writable fields of a flat.
func (c *Client) UpdateFlat(ctx context.Context, id string, in FlatInput) (Flat, error) {
	p, err := pathID(id)
	if err != nil {
		return Flat{}, fmt.Errorf("update flat: %w", err)
	}
	var f Flat
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: "/flats/" + p, Body: in}, &f); err != nil {
		return Flat{}, fmt.Errorf("update flat %s: %w", id, err)
	}
	return f, nil
}

// DeleteFlat removes a flat. Owners and administrators only.
func (c *Client) DeleteFlat(ctx context.Context, id string) error {
	p, err := pathID(id)
	if err != nil {
		return fmt.Errorf("delete flat: %w", err)
	}
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodDelete, Path: "/flats/" + p}, nil); err != nil {
		return fmt.Errorf("delete flat %s: %w", id, err)
	}
	return nil
}
