package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestPutEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	c.Put("alpha", 1)
	c.Put("beta", 2)

	if _, ok := c.Get("alpha"); !ok {
		t.Fatalf("expected alpha to be cached")
	}
	c.Put("gamma", 3)

	if _, ok := c.Get("beta"); ok {
		t.Fatalf("beta should have been evicted")
	}
	if v, ok := c.Get("alpha"); !ok || v != 1 {
		t.Fatalf("alpha = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestPutUpdatesExistingEntryWithoutGrowing(t *testing.T) {
	c := New[string, string](1)
	c.Put("alpha", "x")
	c.Put("alpha", "y")

	if v, ok := c.Get("alpha"); !ok || v != "y" {
		t.Fatalf("alpha = %q, %v", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestRemoveAndZeroCapacity(t *testing.T) {
	c := New[int, int](4)
	c.Put(1, 1)
	c.Remove(1)
	c.Remove(2)
	if _, ok := c.Get(1); ok {
		t.Fatalf("removed key still present")
	}

	none := New[int, int](0)
	none.Put(1, 1)
	if none.Len() != 0 {
		t.Fatalf("zero-capacity cache stored a value")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string, int](16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%32)
				c.Put(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 16 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}
