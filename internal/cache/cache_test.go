package cache

import (
	"testing"
	"time"
)

func TestTTLHitAndMiss(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}
	c.Set("a", 42)
	v, ok := c.Get("a")
	if !ok || v != 42 {
		t.Fatalf("expected hit with 42, got %v %v", v, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.Set("a", 1)
	base = base.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired too early")
	}

	base = base.Add(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatal("expired entry should be dropped on access")
	}
}

func TestTTLDisabled(t *testing.T) {
	c := NewTTL[string, int](0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero ttl must disable caching")
	}
}

func TestTTLPurge(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	base := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return base }

	c.Set("a", 1)
	c.Set("b", 2)
	base = base.Add(2 * time.Minute)
	c.Set("c", 3)

	if dropped := c.Purge(); dropped != 2 {
		t.Fatalf("purge dropped %d, want 2", dropped)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestTTLDelete(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry should miss")
	}
}
