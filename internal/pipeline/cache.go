package pipeline

import (
	"container/list"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/couchcryptid/sep-forecast-service/internal/observability"
)

// CachedForecaster wraps a Forecaster with an in-memory LRU cache. Replayed or
// duplicated trigger sets skip the likelihood evaluation.
type CachedForecaster struct {
	inner   domain.Forecaster
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedForecaster creates a cache decorator around a forecaster.
func NewCachedForecaster(inner domain.Forecaster, maxEntries int, metrics *observability.Metrics) *CachedForecaster {
	return &CachedForecaster{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedForecaster) Forecast(ts domain.TriggerSet) (domain.SEPForecast, error) {
	key := cacheKey(ts)
	if f, ok := c.cache.get(key); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return f, nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	f, err := c.inner.Forecast(ts)
	if err != nil {
		return f, err
	}
	c.cache.put(key, f)
	return f, nil
}

// cacheKey covers exactly the inputs the forecast depends on. Timestamps,
// class labels and IDs are excluded.
func cacheKey(ts domain.TriggerSet) string {
	var b strings.Builder
	if f := ts.Flare; f != nil {
		fmt.Fprintf(&b, "f:%g,%g", f.Longitude, f.Magnitude)
	}
	b.WriteByte('|')
	if m := ts.CME; m != nil {
		fmt.Fprintf(&b, "c:%g,%g", m.Width, m.Velocity)
	}
	return b.String()
}

// lruCache is a bounded, mutex-guarded LRU of forecasts. The list front is
// the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type entry struct {
	key   string
	value domain.SEPForecast
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (domain.SEPForecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.SEPForecast{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value domain.SEPForecast) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
