package ratelimiter

import (
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync"
)

const DefaultWindow = time.Minute

// Limiter is a sliding-window rate limiter keyed by action. Windows of
// different keys are fully independent.
type Limiter struct {
	trustedPrefixes []string
	entries         *xsync.MapOf[string, *entry]

	now func() time.Time
}

type entry struct {
	mutex      sync.Mutex
	timestamps []time.Time
}

func New(trustedPrefixes []string) *Limiter {
	return &Limiter{
		trustedPrefixes: trustedPrefixes,
		entries:         xsync.NewMapOf[*entry](),
		now:             time.Now,
	}
}

// Allow records an invocation under the key and reports whether the number of
// invocations within the window stays at or below maxPerWindow.
func (l *Limiter) Allow(key string, maxPerWindow int, window time.Duration) bool {
	if window <= 0 {
		window = DefaultWindow
	}

	e, _ := l.entries.LoadOrStore(key, &entry{})
	e.mutex.Lock()
	defer e.mutex.Unlock()

	now := l.now()
	cutoff := now.Add(-window)
	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	e.timestamps = append(kept, now)
	return len(e.timestamps) <= maxPerWindow
}

// IsTrustedSource reports whether the source matches a trusted prefix.
// Trusted server-initiated transactions bypass throttling entirely.
func (l *Limiter) IsTrustedSource(source string) bool {
	for _, prefix := range l.trustedPrefixes {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}

	return false
}
