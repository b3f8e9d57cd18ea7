package antispam

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	bucket int64
	seen   bool
}

// MemoryLimiter implements the fixed-window check in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*memoryEntry)}
}

// Allow reports whether the key is unseen in the current window and marks it.
func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (Result, error) {
	if key == "" {
		return Result{Allowed: true}, nil
	}
	bucket := BucketFor(now)
	reset := BucketReset(now)

	l.mu.Lock()
	entry := l.entries[key]
	if entry == nil {
		entry = &memoryEntry{bucket: bucket}
		l.entries[key] = entry
	}
	if entry.bucket != bucket {
		entry.bucket = bucket
		entry.seen = false
	}
	if entry.seen {
		l.mu.Unlock()
		return Result{Allowed: false, Reset: reset}, nil
	}
	entry.seen = true
	l.mu.Unlock()
	return Result{Allowed: true, Reset: reset}, nil
}
