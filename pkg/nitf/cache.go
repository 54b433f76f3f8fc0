package nitf

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// BlockCache keeps parsed extension areas with LRU eviction.
//
// Memory use is estimated from the raw bytes of each block plus a fixed
// overhead per TRE, so the limit is approximate.
//
// Example:
//
//	cache := nitf.NewBlockCache(64 * 1024 * 1024) // 64MB
//
//	// Get block (parses from disk if not cached)
//	block, err := cache.Get(path, func() (*nitf.Block, error) {
//	    return nitf.LoadBlock(path, parser)
//	})
type BlockCache struct {
	maxMemory  int64 // Maximum memory in bytes
	usedMemory int64 // Current memory usage estimate
	blocks     map[string]*cacheEntry
	lru        *list.List // LRU list (most recent at front)
	mu         sync.Mutex
}

type cacheEntry struct {
	name         string
	block        *Block
	memorySize   int64
	element      *list.Element // Position in LRU list
	lastAccessed time.Time
	accessCount  int
}

// NewBlockCache creates a new cache with the specified memory limit in bytes.
// Set to 0 for unlimited cache size.
func NewBlockCache(maxMemoryBytes int64) *BlockCache {
	return &BlockCache{
		maxMemory: maxMemoryBytes,
		blocks:    make(map[string]*cacheEntry),
		lru:       list.New(),
	}
}

// Get returns the cached block called name, or calls loader and caches the
// result. A block larger than the whole cache is returned without being
// cached.
func (c *BlockCache) Get(name string, loader func() (*Block, error)) (*Block, error) {
	c.mu.Lock()
	if entry, ok := c.blocks[name]; ok {
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.mu.Unlock()
		return entry.block, nil
	}
	c.mu.Unlock()

	block, err := loader()
	if err != nil {
		return nil, fmt.Errorf("load block: %w", err)
	}

	// A block too large to cache is still usable.
	_ = c.Add(name, block)
	return block, nil
}

// Add adds a block to the cache, evicting least recently used blocks to make
// room. It fails if the block alone exceeds the memory limit.
func (c *BlockCache) Add(name string, block *Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	memSize := estimateBlockMemory(block)

	if entry, ok := c.blocks[name]; ok {
		c.usedMemory += memSize - entry.memorySize
		entry.block = block
		entry.memorySize = memSize
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		return nil
	}

	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("block too large for cache (%d bytes > %d bytes max)", memSize, c.maxMemory)
	}

	if c.maxMemory > 0 {
		for c.usedMemory+memSize > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &cacheEntry{
		name:         name,
		block:        block,
		memorySize:   memSize,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	entry.element = c.lru.PushFront(entry)
	c.blocks[name] = entry
	c.usedMemory += memSize

	return nil
}

// evictLRU removes the least recently used block.
// Must be called with c.mu locked.
func (c *BlockCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.blocks, entry.name)
	c.usedMemory -= entry.memorySize
}

// Remove explicitly removes a block from the cache.
func (c *BlockCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.blocks[name]; ok {
		c.lru.Remove(entry.element)
		delete(c.blocks, name)
		c.usedMemory -= entry.memorySize
	}
}

// Clear removes all blocks from the cache.
func (c *BlockCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// Stats returns cache statistics.
func (c *BlockCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalAccess := 0
	for _, entry := range c.blocks {
		totalAccess += entry.accessCount
	}

	return CacheStats{
		BlockCount:  len(c.blocks),
		UsedMemory:  c.usedMemory,
		MaxMemory:   c.maxMemory,
		TotalAccess: totalAccess,
	}
}

// CacheStats holds cache performance metrics.
type CacheStats struct {
	BlockCount  int   // Number of blocks currently cached
	UsedMemory  int64 // Estimated memory usage in bytes
	MaxMemory   int64 // Maximum memory limit in bytes
	TotalAccess int   // Total number of accesses across all cached blocks
}

// estimateBlockMemory counts the raw bytes twice (the block keeps them and
// the parsed fields copy them) plus a fixed overhead per TRE.
func estimateBlockMemory(block *Block) int64 {
	if block == nil {
		return 0
	}
	size := int64(256)
	size += 2 * int64(len(block.Data))
	size += int64(len(block.Extensions)) * 512
	return size
}
