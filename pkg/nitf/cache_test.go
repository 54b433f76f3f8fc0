package nitf

import (
	"errors"
	"testing"
)

func TestCacheBasic(t *testing.T) {
	cache := NewBlockCache(1024 * 1024) // 1MB

	if stats := cache.Stats(); stats.BlockCount != 0 {
		t.Errorf("Expected empty cache, got %d blocks", stats.BlockCount)
	}

	loadCount := 0
	block, err := cache.Get("a.tre", func() (*Block, error) {
		loadCount++
		return &Block{Path: "a.tre", Data: []byte("first")}, nil
	})
	if err != nil {
		t.Fatalf("Failed to load block: %v", err)
	}
	if string(block.Data) != "first" {
		t.Errorf("Expected data 'first', got %q", block.Data)
	}

	block2, err := cache.Get("a.tre", func() (*Block, error) {
		loadCount++
		return &Block{Path: "a.tre", Data: []byte("second")}, nil
	})
	if err != nil {
		t.Fatalf("Failed to get cached block: %v", err)
	}
	if block2 != block {
		t.Error("Expected the cached block on a hit")
	}
	if loadCount != 1 {
		t.Errorf("Expected loader called once, got %d times", loadCount)
	}

	stats := cache.Stats()
	if stats.BlockCount != 1 || stats.TotalAccess != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCacheEviction(t *testing.T) {
	// Each block below is estimated at 256 + 2*1000 + 512 bytes.
	cache := NewBlockCache(6000)
	data := make([]byte, 1000)
	block := func() (*Block, error) {
		return &Block{Data: data, Extensions: []Extension{NewUnknown("XYZZY", nil)}}, nil
	}

	for _, name := range []string{"a", "b"} {
		if _, err := cache.Get(name, block); err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
	}
	// Touch a so b becomes least recently used.
	cache.Get("a", block)
	cache.Get("c", block)

	stats := cache.Stats()
	if stats.BlockCount != 2 {
		t.Fatalf("Expected 2 blocks after eviction, got %d", stats.BlockCount)
	}
	if stats.UsedMemory > stats.MaxMemory {
		t.Errorf("used %d exceeds max %d", stats.UsedMemory, stats.MaxMemory)
	}

	loaded := false
	cache.Get("b", func() (*Block, error) {
		loaded = true
		return block()
	})
	if !loaded {
		t.Error("Expected b to have been evicted")
	}
}

func TestCacheTooLarge(t *testing.T) {
	cache := NewBlockCache(100)
	big := &Block{Data: make([]byte, 1000)}
	if err := cache.Add("big", big); err == nil {
		t.Error("Expected error adding a block larger than the cache")
	}

	got, err := cache.Get("big", func() (*Block, error) { return big, nil })
	if err != nil || got != big {
		t.Errorf("Get = %v, %v; want the uncached block", got, err)
	}
	if cache.Stats().BlockCount != 0 {
		t.Error("oversized block was cached")
	}
}

func TestCacheLoaderError(t *testing.T) {
	cache := NewBlockCache(0)
	boom := errors.New("boom")
	if _, err := cache.Get("x", func() (*Block, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped loader error", err)
	}
}

func TestCacheRemoveClear(t *testing.T) {
	cache := NewBlockCache(0)
	cache.Add("a", &Block{})
	cache.Add("b", &Block{})

	cache.Remove("a")
	if cache.Stats().BlockCount != 1 {
		t.Errorf("Expected 1 block after Remove, got %d", cache.Stats().BlockCount)
	}

	cache.Clear()
	if stats := cache.Stats(); stats.BlockCount != 0 || stats.UsedMemory != 0 {
		t.Errorf("stats after Clear = %+v", stats)
	}
}
