// Package cache keeps recently converted matrices so repeated conversion
// requests skip the kernels.
package cache

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/23skdu/longbow-sparse/internal/codec"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparse_cache_hits_total",
		Help: "Conversion requests answered from the cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sparse_cache_misses_total",
		Help: "Conversion requests not found in the cache",
	})
)

// ConversionCache stores converted matrices by request key.
type ConversionCache interface {
	// Get retrieves a converted matrix.
	Get(key uint64) (*codec.Converted, bool)
	// Put stores a converted matrix.
	Put(key uint64, c *codec.Converted)
	// Size returns the number of items in the cache.
	Size() int
}

var keyMode cbor.EncMode

func init() {
	var err error
	keyMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Key digests a conversion request. Requests that encode to the same
// deterministic CBOR share a key.
func Key(req *codec.ConvertRequest) (uint64, error) {
	b, err := keyMode.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("cache key: %w", err)
	}
	return xxhash.Sum64(b), nil
}

// MapCache is an in-memory ConversionCache holding at most maxEntries
// items. When full, the oldest insertion is evicted.
type MapCache struct {
	mu         sync.RWMutex
	data       map[uint64]*codec.Converted
	order      []uint64
	maxEntries int
}

// NewMapCache creates a cache. maxEntries <= 0 means unbounded.
func NewMapCache(maxEntries int) *MapCache {
	return &MapCache{
		data:       make(map[uint64]*codec.Converted),
		maxEntries: maxEntries,
	}
}

func (c *MapCache) Get(key uint64) (*codec.Converted, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.data[key]; ok {
		cacheHits.Inc()
		return clone(v), true
	}
	cacheMisses.Inc()
	return nil, false
}

func (c *MapCache) Put(key uint64, v *codec.Converted) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.data[key]; !ok {
		if c.maxEntries > 0 && len(c.order) >= c.maxEntries {
			delete(c.data, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.data[key] = clone(v)
}

func (c *MapCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func clone(v *codec.Converted) *codec.Converted {
	out := *v
	out.SliceSets = slices.Clone(v.SliceSets)
	out.RowPtrs = slices.Clone(v.RowPtrs)
	out.ColIdxs = slices.Clone(v.ColIdxs)
	out.Values = slices.Clone(v.Values)
	out.NonzerosPerRow = slices.Clone(v.NonzerosPerRow)
	out.Diagonal = slices.Clone(v.Diagonal)
	return &out
}
