package cache

import (
	"context"
	"testing"
	"time"
)

func TestLocalSetGetExpiry(t *testing.T) {
	c := New(Config{})
	ctx := context.Background()

	if err := c.SetString(ctx, "k", "v", 0); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	v, ok := c.GetString(ctx, "k")
	if !ok || v != "v" {
		t.Fatalf("expected v=%q ok=true, got v=%q ok=%v", "v", v, ok)
	}

	if err := c.SetString(ctx, "ttl", "v", 1); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, ok := c.GetString(ctx, "ttl"); ok {
		t.Fatalf("expected expired key to be absent")
	}
}

func TestIncrementCreatesWithTTL(t *testing.T) {
	c := New(Config{})
	ctx := context.Background()

	n, err := c.Increment(ctx, "counter", 60)
	if err != nil || n != 1 {
		t.Fatalf("expected n=1 err=nil, got n=%d err=%v", n, err)
	}
	n, err = c.Increment(ctx, "counter", 60)
	if err != nil || n != 2 {
		t.Fatalf("expected n=2 err=nil, got n=%d err=%v", n, err)
	}
	if e := c.local["counter"]; e.expiresAt.IsZero() {
		t.Fatalf("expected the counter created by Increment to carry a TTL")
	}
}

func TestLockAcquireReleaseOwnerCheck(t *testing.T) {
	c := New(Config{})
	ctx := context.Background()

	if !c.AcquireLock(ctx, "lock", "owner-a", 10) {
		t.Fatalf("expected first acquire to succeed")
	}
	if c.AcquireLock(ctx, "lock", "owner-b", 10) {
		t.Fatalf("expected second acquire to fail while held")
	}
	c.ReleaseLock(ctx, "lock", "owner-b") // wrong owner, no-op
	if c.AcquireLock(ctx, "lock", "owner-b", 10) {
		t.Fatalf("expected lock to still be held after wrong-owner release")
	}
	c.ReleaseLock(ctx, "lock", "owner-a")
	if !c.AcquireLock(ctx, "lock", "owner-b", 10) {
		t.Fatalf("expected acquire to succeed after correct release")
	}
}

func TestGetSetValueRoundTrip(t *testing.T) {
	type payload struct {
		Name string
		N    int
	}
	c := New(Config{})
	ctx := context.Background()

	if err := SetValue(ctx, c, "p", payload{Name: "a", N: 3}, 0); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	got, ok := GetValue[payload](ctx, c, "p")
	if !ok || got.Name != "a" || got.N != 3 {
		t.Fatalf("unexpected round-trip result: %+v ok=%v", got, ok)
	}
}
