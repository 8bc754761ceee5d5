package cache

import (
	"sync"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/database"
	"github.com/JustJay7/highcourt-fetcher/internal/metrics"
	"github.com/patrickmn/go-cache"
)

// Cache holds stored cases keyed by CNR
type Cache interface {
	Get(cnr string) (*database.Case, bool)
	Set(cnr string, value *database.Case) error
	Delete(cnr string)
	Clear()
	Stats() CacheStats
}

type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	MaxSize    int       `json:"max_size"`
	LastAccess time.Time `json:"last_access"`
}

// CaseCache is a size-bounded TTL cache. When full, the entry closest to
// expiry is evicted.
type CaseCache struct {
	cache   *cache.Cache
	mu      sync.Mutex
	stats   CacheStats
	maxSize int
}

func NewCache(maxSize int, ttl time.Duration) Cache {
	return &CaseCache{
		cache:   cache.New(ttl, ttl*2),
		maxSize: maxSize,
	}
}

func (c *CaseCache) Get(cnr string) (*database.Case, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = time.Now()

	if data, found := c.cache.Get(Key(cnr)); found {
		if stored, ok := data.(*database.Case); ok {
			c.stats.Hits++
			metrics.RecordCacheHit()
			return stored, true
		}
	}

	c.stats.Misses++
	metrics.RecordCacheMiss()
	return nil, false
}

func (c *CaseCache) Set(cnr string, value *database.Case) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(cnr)
	if _, exists := c.cache.Get(key); !exists && c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.removeOldest()
	}

	c.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (c *CaseCache) Delete(cnr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(Key(cnr))
}

func (c *CaseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.stats = CacheStats{}
}

func (c *CaseCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.cache.ItemCount()
	stats.MaxSize = c.maxSize
	return stats
}

func (c *CaseCache) removeOldest() {
	var oldestKey string
	var oldest int64

	for key, item := range c.cache.Items() {
		if oldestKey == "" || item.Expiration < oldest {
			oldestKey = key
			oldest = item.Expiration
		}
	}

	if oldestKey != "" {
		c.cache.Delete(oldestKey)
	}
}

// Key normalises a CNR into a cache key
func Key(cnr string) string {
	return "case:" + database.NormalizeCNR(cnr)
}
