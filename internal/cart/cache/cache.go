package cache

import (
	"context"
	"errors"
)

// CartCache holds serialized carts keyed by session id.
type CartCache interface {
	Get(ctx context.Context, sessionID string) ([]byte, error)
	Set(ctx context.Context, sessionID string, payload []byte) error
	// Add stores payload only when no entry exists for the session.
	Add(ctx context.Context, sessionID string, payload []byte) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
