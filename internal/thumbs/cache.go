package thumbs

import (
	"container/list"
	"context"
	"image"
	"sync"

	"imagepick/internal/logging"
	"imagepick/internal/memory"
	"imagepick/internal/metrics"
	"imagepick/internal/workers"
)

// DefaultMemoryFraction is the share of the memory budget given to the
// thumbnail cache when no explicit byte limit is passed.
const DefaultMemoryFraction = 0.125

type cacheKey struct {
	uri  string
	size int
}

type cacheEntry struct {
	key   cacheKey
	img   image.Image
	bytes int64
}

// Cache is a bounded LRU of decoded thumbnails keyed by (uri, target size),
// weighted by decoded byte size. Misses run the decode chain on a bounded
// worker pool.
type Cache struct {
	maxBytes int64
	sem      chan struct{}

	mu       sync.Mutex
	ll       *list.List
	items    map[cacheKey]*list.Element
	curBytes int64
	gen      uint64

	decode func(path string, size int) (image.Image, error)
}

// NewCache creates a thumbnail cache bounded at maxBytes. Pass 0 to size
// it as DefaultMemoryFraction of the memory budget.
func NewCache(maxBytes int64) *Cache {
	if maxBytes <= 0 {
		maxBytes = memory.CacheBudget(DefaultMemoryFraction)
	}
	logging.Debug("thumbnail cache budget: %s", memory.FormatBytes(maxBytes))
	return &Cache{
		maxBytes: maxBytes,
		sem:      make(chan struct{}, workers.ForIO(8)),
		ll:       list.New(),
		items:    make(map[cacheKey]*list.Element),
		decode:   decodeThumbnail,
	}
}

// Get returns the thumbnail for uri at the target size, decoding and
// caching it on a miss. Exhausting every decode path returns an error; the
// caller shows a placeholder.
func (c *Cache) Get(ctx context.Context, uri, path string, size int) (image.Image, error) {
	key := cacheKey{uri: uri, size: size}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		img := el.Value.(*cacheEntry).img
		c.mu.Unlock()
		metrics.ThumbCacheHits.Inc()
		return img, nil
	}
	gen := c.gen
	c.mu.Unlock()
	metrics.ThumbCacheMisses.Inc()

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	img, err := c.decode(path, size)
	if err != nil {
		return nil, err
	}

	c.put(key, img, gen)
	return img, nil
}

// put stores a decoded thumbnail and evicts from the cold end until the
// cache is back under budget. A store whose generation predates a Clear is
// discarded: the decode finished against a cache that no longer exists.
func (c *Cache) put(key cacheKey, img image.Image, gen uint64) {
	weight := imageBytes(img)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	if _, ok := c.items[key]; ok {
		return
	}

	el := c.ll.PushFront(&cacheEntry{key: key, img: img, bytes: weight})
	c.items[key] = el
	c.curBytes += weight

	for c.curBytes > c.maxBytes && c.ll.Len() > 1 {
		oldest := c.ll.Back()
		entry := oldest.Value.(*cacheEntry)
		c.ll.Remove(oldest)
		delete(c.items, entry.key)
		c.curBytes -= entry.bytes
		metrics.ThumbCacheEvictions.Inc()
	}
	metrics.ThumbCacheBytes.Set(float64(c.curBytes))
}

// Clear evicts everything. Safe no-op when nothing is cached.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.ll.Init()
	c.items = make(map[cacheKey]*list.Element)
	c.curBytes = 0
	metrics.ThumbCacheBytes.Set(0)
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Bytes returns the current cache weight.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

// imageBytes estimates the decoded weight of an image at 4 bytes per pixel.
func imageBytes(img image.Image) int64 {
	bounds := img.Bounds()
	return int64(bounds.Dx()) * int64(bounds.Dy()) * 4
}
