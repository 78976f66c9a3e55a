package storage

import (
	"context"
	"errors"
)

// TokenKey is the single key the credential lives under in every store.
const TokenKey = "token"

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage: store closed")

// TokenStore persists the bearer credential between page loads and restarts.
// Get returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores backed by an external process or file so
// readiness checks can ping them.
type Pinger interface {
	Ping(ctx context.Context) error
}
