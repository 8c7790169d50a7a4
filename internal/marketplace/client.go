// Package marketplace is a typed client for the rental marketplace API.
// Every call goes through the request gateway, so authentication failures
// end the session uniformly.
package marketplace

import (
	"context"

	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
)

// Doer sends API requests. *gateway.Client implements it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
	DoAnonymous(ctx context.Context, req gateway.Request, out any) error
}

// Client wraps a Doer with the marketplace endpoints.
type Client struct {
	api Doer
}

// New creates a client sending requests through api.
func New(api Doer) *Client {
	return &Client{api: api}
}
