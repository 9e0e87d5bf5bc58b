package ports

import (
	"context"
	"time"
)

// Store records invalidated refresh tokens until they would have expired
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// Ping reports whether the backing storage is reachable
	Ping(ctx context.Context) error
}
