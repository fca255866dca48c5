package service

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthenticated is returned before any network call when an
	// operation requires a signed-in user and none is present.
	ErrNotAuthenticated = errors.New("please sign in first")

	// ErrAdminRequired gates admin operations client-side. The server
	// remains the actual authority.
	ErrAdminRequired = errors.New("admin access required")
)

// Doer is the slice of the gateway the services depend on.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}
