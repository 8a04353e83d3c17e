package cache

import (
	"testing"
	"time"
)

func TestMemoryCacheSetGetRoundTrip(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()

	if err := c.Set("seattle|7", []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := c.Get("seattle|7")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != "payload" {
		t.Errorf("Get() = %q, want %q", got, "payload")
	}
}

func TestMemoryCacheMissReturnsFalse(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()
	if _, ok := c.Get("absent"); ok {
		t.Error("Get() on absent key ok = true, want false")
	}
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()
	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() returned an entry past its ttl")
	}
}

func TestMemoryCacheRejectsNonPositiveTTL(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()
	if err := c.Set("k", []byte("v"), 0); err == nil {
		t.Error("Set() with zero ttl error = nil, want an error")
	}
}

func TestMemoryCacheEvictsOldestAtCapacity(t *testing.T) {
	c := NewMemoryCache(Options{MaxSize: 2})
	defer c.Close()

	c.Set("a", []byte("1"), time.Minute)
	time.Sleep(time.Millisecond)
	c.Set("b", []byte("2"), time.Minute)
	time.Sleep(time.Millisecond)
	c.Set("c", []byte("3"), time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry 'a' should have been evicted at capacity")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry 'c' should still be present")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()
	c.Set("k", []byte("v"), time.Minute)
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after Delete() ok = true, want false")
	}
}

func TestMemoryCacheGetReturnsACopyNotAliasingStoredBytes(t *testing.T) {
	c := NewMemoryCache(Options{})
	defer c.Close()
	original := []byte("hello")
	c.Set("k", original, time.Minute)

	got, _ := c.Get("k")
	got[0] = 'H'

	again, _ := c.Get("k")
	if again[0] != 'h' {
		t.Error("mutating a Get() result must not affect the stored value")
	}
}
