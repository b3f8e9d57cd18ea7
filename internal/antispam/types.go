package antispam

import (
	"context"
	"time"
)

// Window is the impression suppression window: at most one impression per
// key per window.
const Window = 5 * time.Minute

// Result describes the outcome of a window check.
type Result struct {
	Allowed bool
	Reset   time.Time
}

// Limiter answers whether an impression key is still fresh in the current
// window.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Result, error)
}

// BucketFor returns the fixed-window bucket index for a timestamp.
func BucketFor(now time.Time) int64 {
	return now.Unix() / int64(Window/time.Second)
}

// BucketReset returns when the bucket containing now rolls over.
func BucketReset(now time.Time) time.Time {
	next := (BucketFor(now) + 1) * int64(Window/time.Second)
	return time.Unix(next, 0).UTC()
}
