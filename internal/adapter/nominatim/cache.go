package nominatim

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
	"github.com/couchcryptid/aqi-monitor-service/internal/observability"
)

// CachedGeocoder wraps a ReverseGeocoder with an in-memory LRU cache.
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if name, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return name, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	name, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return name, err
	}
	// Only cache named places so transient "not found" responses can be retried.
	if name != "" {
		c.cache.put(key, name)
	}
	return name, nil
}

// lruCache is a bounded, thread-safe map of coordinate keys to place names
// that evicts the least recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List // front = most recently used
	entries    map[string]*list.Element
}

type cacheItem struct {
	key  string
	name string
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).name, true
}

func (c *lruCache) put(key, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).name = name
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheItem{key: key, name: name})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheItem).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
