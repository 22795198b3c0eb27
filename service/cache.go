package service

import (
	"sync"

	"github.com/layer-3/tradeclient/core"
	"github.com/shopspring/decimal"
)

// Cache holds the balances and ticker prices shared by every screen.
// Writes only happen through a Mutation that passed its staleness check.
type Cache struct {
	mu       sync.RWMutex
	balances map[string]core.CachedValue
	prices   map[string]core.CachedValue
}

// Mutation is a decoded result ready to be written. It must not fail.
type Mutation func(w *CacheWriter)

// CacheWriter stamps every write with the writer's generation snapshot
type CacheWriter struct {
	cache      *Cache
	generation core.Generation
}

func newCache() *Cache {
	return &Cache{
		balances: make(map[string]core.CachedValue),
		prices:   make(map[string]core.CachedValue),
	}
}

func (c *Cache) apply(m Mutation, gen core.Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m(&CacheWriter{cache: c, generation: gen})
}

func (c *Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances = make(map[string]core.CachedValue)
	c.prices = make(map[string]core.CachedValue)
}

// ReplaceBalances swaps in a full balance set
func (w *CacheWriter) ReplaceBalances(balances map[string]decimal.Decimal) {
	w.cache.balances = w.stamp(balances)
}

// ReplacePrices swaps in a full ticker set keyed by market
func (w *CacheWriter) ReplacePrices(prices map[string]decimal.Decimal) {
	w.cache.prices = w.stamp(prices)
}

func (w *CacheWriter) stamp(values map[string]decimal.Decimal) map[string]core.CachedValue {
	out := make(map[string]core.CachedValue, len(values))
	for k, v := range values {
		out[k] = core.CachedValue{Value: v, Asset: k, LastWrittenGeneration: w.generation}
	}
	return out
}

// Balance returns the cached balance for asset
func (c *Cache) Balance(asset string) (core.CachedValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.balances[asset]
	return v, ok
}

// Price returns the cached price for a market such as BTC/GBP
func (c *Cache) Price(market string) (core.CachedValue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.prices[market]
	return v, ok
}

// Balances returns a copy of all cached balances
func (c *Cache) Balances() map[string]core.CachedValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyValues(c.balances)
}

// Prices returns a copy of all cached prices
func (c *Cache) Prices() map[string]core.CachedValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyValues(c.prices)
}

func copyValues(in map[string]core.CachedValue) map[string]core.CachedValue {
	out := make(map[string]core.CachedValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
