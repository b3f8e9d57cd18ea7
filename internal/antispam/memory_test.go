package antispam

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_SecondHitInWindowDenied(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_100, 0)
	key := Key(1, nil, "featured", "203.0.113.9")

	first, err := limiter.Allow(context.Background(), key, now)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !first.Allowed {
		t.Fatalf("expected first hit allowed")
	}

	second, err := limiter.Allow(context.Background(), key, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Allowed {
		t.Fatalf("expected second hit in window denied")
	}
}

func TestMemoryLimiter_NewWindowAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_100, 0)
	key := Key(1, nil, "featured", "203.0.113.9")

	if _, err := limiter.Allow(context.Background(), key, now); err != nil {
		t.Fatalf("first: %v", err)
	}
	later, err := limiter.Allow(context.Background(), key, now.Add(Window+time.Second))
	if err != nil {
		t.Fatalf("later: %v", err)
	}
	if !later.Allowed {
		t.Fatalf("expected hit in next window allowed")
	}
}

func TestMemoryLimiter_DistinctKeysIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Unix(1_700_000_100, 0)
	productA := uint64(7)

	keyA := Key(1, &productA, "featured", "203.0.113.9")
	keyB := Key(1, nil, "featured", "203.0.113.9")
	if keyA == keyB {
		t.Fatalf("keys must differ for product vs store impression")
	}

	if _, err := limiter.Allow(context.Background(), keyA, now); err != nil {
		t.Fatalf("keyA: %v", err)
	}
	resB, err := limiter.Allow(context.Background(), keyB, now)
	if err != nil {
		t.Fatalf("keyB: %v", err)
	}
	if !resB.Allowed {
		t.Fatalf("distinct key must be allowed")
	}
}

func TestBucketKey_StableWithinWindow(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)
	key := Key(2, nil, "new-arrivals", "")
	if BucketKey(key, now) != BucketKey(key, now.Add(2*time.Minute)) {
		t.Fatalf("bucket key must be stable inside one window")
	}
	if BucketKey(key, now) == BucketKey(key, now.Add(Window+time.Minute)) {
		t.Fatalf("bucket key must roll over between windows")
	}
}
