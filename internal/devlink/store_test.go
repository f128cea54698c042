package devlink

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Put("a@example.com", "https://x/auth/verify?token=1")

	link, ok := store.Get("A@Example.com")
	if !ok {
		t.Fatal("Get should return link after Put")
	}
	if link != "https://x/auth/verify?token=1" {
		t.Errorf("link = %q", link)
	}
}

func TestMemoryStore_LatestWins(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Put("a@example.com", "first")
	store.Put("a@example.com", "second")
	if link, _ := store.Get("a@example.com"); link != "second" {
		t.Errorf("link = %q, want second", link)
	}
}

func TestMemoryStore_Missing(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	if link, ok := store.Get("nobody@example.com"); ok || link != "" {
		t.Errorf("Get = (%q, %v), want empty, false", link, ok)
	}
}

func TestMemoryStore_Expired(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.nowF = func() time.Time { return now }
	store.Put("a@example.com", "link")

	now = now.Add(time.Minute)
	if _, ok := store.Get("a@example.com"); ok {
		t.Error("Get should return false at expiry")
	}
	store.mu.RLock()
	n := len(store.m)
	store.mu.RUnlock()
	if n != 0 {
		t.Errorf("expired entry not removed, len = %d", n)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		email := fmt.Sprintf("u%d@example.com", i)
		go func() {
			defer wg.Done()
			store.Put(email, "link")
		}()
		go func() {
			defer wg.Done()
			store.Get(email)
		}()
	}
	wg.Wait()
}
