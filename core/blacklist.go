package core

import (
	"context"
	"time"
)

// TokenBlacklist keeps the IDs (jti) of revoked tokens until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
