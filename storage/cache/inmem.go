package cache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	nowFunc func() time.Time
}

var _ core.TokenBlacklist = (*memoryBlacklist)(nil)

func NewMemoryBlacklist() core.TokenBlacklist {
	return &memoryBlacklist{
		revoked: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (bl *memoryBlacklist) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	now := bl.nowFunc()
	if !expiresAt.After(now) {
		return nil
	}
	bl.revoked[jti] = expiresAt

	// drop expired entries
	for id, exp := range bl.revoked {
		if !exp.After(now) {
			delete(bl.revoked, id)
		}
	}
	return nil
}

func (bl *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	exp, ok := bl.revoked[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(bl.nowFunc()) {
		delete(bl.revoked, jti)
		return false, nil
	}
	return true, nil
}
