package locker

import (
	"context"

	"github.com/puzpuzpuz/xsync"
)

// Locker is a named mutual-exclusion primitive. Lock reports false when the
// key is already held; the caller must treat that as "operation in progress"
// rather than an error to silently retry. Every successful Lock must be paired
// with a deferred Unlock so the key is released on all exit paths.
type Locker interface {
	Lock(ctx context.Context, key string) bool
	Unlock(ctx context.Context, key string)
}

// MemoryLocker serializes critical sections within a single process. For a
// horizontally-scaled deployment use RedisLocker instead.
type MemoryLocker struct {
	held *xsync.MapOf[string, struct{}]
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: xsync.NewMapOf[struct{}]()}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) bool {
	_, loaded := l.held.LoadOrStore(key, struct{}{})
	return !loaded
}

func (l *MemoryLocker) Unlock(ctx context.Context, key string) {
	l.held.Delete(key)
}
