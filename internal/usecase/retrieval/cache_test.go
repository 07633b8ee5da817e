package retrieval

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/solace/internal/domain/document"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Hello World ", "hello world"},
		{"ANXIETY", "anxiety"},
		{"\tbreathing\n", "breathing"},
		{"", ""},
	}
	for _, tt := range tests {
		got := NormalizeKey(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if NormalizeKey(got) != got {
			t.Errorf("NormalizeKey not idempotent for %q", tt.in)
		}
	}
}

func TestQueryCache_GetPut(t *testing.T) {
	c := NewQueryCache(CacheOptions{})

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}

	c.Put("q", []document.Document{doc("a", 0.9, "stress")})
	got, ok := c.Get("q")
	if !ok || len(got) != 1 || got[0].Content() != "a" {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	c.Put("q", []document.Document{doc("b", 0.5, "")})
	got, _ = c.Get("q")
	if got[0].Content() != "b" {
		t.Errorf("last write should win, got %s", got[0].Content())
	}
}

func TestQueryCache_EmptyResultIsCached(t *testing.T) {
	c := NewQueryCache(CacheOptions{})
	c.Put("nothing", nil)

	got, ok := c.Get("nothing")
	if !ok {
		t.Fatal("expected hit for cached empty result")
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %d", len(got))
	}
}

func TestQueryCache_ReturnsCopy(t *testing.T) {
	c := NewQueryCache(CacheOptions{})
	c.Put("q", []document.Document{doc("a", 0.9, ""), doc("b", 0.8, "")})

	got, _ := c.Get("q")
	got[0] = doc("mutated", 0.1, "")

	again, _ := c.Get("q")
	if again[0].Content() != "a" {
		t.Errorf("cache was mutated through returned slice")
	}
}

func TestQueryCache_MaxEntriesEvictsOldest(t *testing.T) {
	c := NewQueryCache(CacheOptions{MaxEntries: 2})
	c.Put("one", nil)
	c.Put("two", nil)
	c.Put("one", nil) // overwrite does not evict
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	c.Put("three", nil)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("two"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if _, ok := c.Get("one"); !ok {
		t.Error("rewritten entry should survive")
	}
}

func TestQueryCache_TTL(t *testing.T) {
	c := NewQueryCache(CacheOptions{TTL: 20 * time.Millisecond})
	c.Put("q", nil)
	if _, ok := c.Get("q"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("q"); ok {
		t.Error("expected miss after expiry")
	}
}

func TestQueryCache_Concurrent(t *testing.T) {
	c := NewQueryCache(CacheOptions{MaxEntries: 8})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("q%d", i%12)
			c.Put(key, []document.Document{doc(key, 0.5, "")})
			c.Get(key)
		}(i)
	}
	wg.Wait()

	if c.Len() > 8 {
		t.Errorf("Len = %d exceeds bound", c.Len())
	}
}
