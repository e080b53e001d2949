package cache

import "testing"

func TestLRURoundTrip(t *testing.T) {
	cache, err := NewLRU(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	cache.Set("a", 1)
	value, ok := cache.Get("a")
	if !ok || value != 1 {
		t.Fatalf("expected cached value, got %v ok=%v", value, ok)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected length 1, got %d", cache.Len())
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	cache, err := NewLRU(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	if cache.Len() != 2 {
		t.Fatalf("expected bounded length 2, got %d", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected newest entry retained")
	}
}

func TestLRURejectsNonPositiveSize(t *testing.T) {
	if _, err := NewLRU(0); err == nil {
		t.Fatalf("expected error for non-positive size")
	}
}

func TestLRUNilReceiver(t *testing.T) {
	var cache *LRU
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected nil cache to miss")
	}
	cache.Set("a", 1)
	if cache.Len() != 0 {
		t.Fatalf("expected nil cache length 0")
	}
}
