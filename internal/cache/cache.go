// Package cache holds resolved textures under their stable keys, with one
// dictionary per climate variant.
//
// A Cache is not safe for concurrent use. Callers serialize access.
package cache

import (
	"errors"

	"github.com/MeKo-Tech/climatetex/internal/climate"
	"github.com/MeKo-Tech/climatetex/internal/texkey"
)

// ErrCacheFull is returned when a bounded cache can not take another key.
var ErrCacheFull = errors.New("cache: capacity exhausted")

var variants = [...]climate.Variant{climate.General, climate.WinterVariant, climate.RainVariant}

// Cache maps texture keys to values, separately per climate variant.
type Cache[V any] struct {
	dicts    [len(variants)]map[texkey.Key]V
	capacity int
	onClear  []func()
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	capacity int
}

// WithCapacity bounds the number of distinct keys. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Cache[V]{capacity: cfg.capacity}
	for i := range c.dicts {
		c.dicts[i] = make(map[texkey.Key]V)
	}
	return c
}

// GetOrCreate returns the value stored under key in the variant's dictionary.
// On a miss it calls create and stores the result. If create fails nothing is
// stored.
func (c *Cache[V]) GetOrCreate(key texkey.Key, variant climate.Variant, create func() (V, error)) (V, error) {
	d := c.dict(variant)
	if v, ok := d[key]; ok {
		return v, nil
	}

	if c.capacity > 0 && !c.hasKey(key) && c.Len() >= c.capacity {
		var zero V
		return zero, ErrCacheFull
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	d[key] = v
	return v, nil
}

// Get looks key up for weather. The weather's variant dictionary is consulted
// first when it holds the key, otherwise the general one. ok is false when the
// key is in neither.
func (c *Cache[V]) Get(key texkey.Key, weather climate.Weather) (v V, ok bool) {
	if variant := climate.VariantFor(weather); variant != climate.General {
		if v, ok := c.dict(variant)[key]; ok {
			return v, true
		}
	}
	v, ok = c.dict(climate.General)[key]
	return v, ok
}

// Contains reports whether the variant's dictionary holds key.
func (c *Cache[V]) Contains(key texkey.Key, variant climate.Variant) bool {
	_, ok := c.dict(variant)[key]
	return ok
}

// Remove deletes key from every dictionary and returns the removed values.
func (c *Cache[V]) Remove(key texkey.Key) []V {
	var removed []V
	for _, d := range c.dicts {
		if v, ok := d[key]; ok {
			removed = append(removed, v)
			delete(d, key)
		}
	}
	return removed
}

// Clear empties every dictionary and runs the OnClear hooks.
func (c *Cache[V]) Clear() {
	for i := range c.dicts {
		clear(c.dicts[i])
	}
	for _, fn := range c.onClear {
		fn()
	}
}

// OnClear registers fn to run after every Clear.
func (c *Cache[V]) OnClear(fn func()) {
	c.onClear = append(c.onClear, fn)
}

// Len returns the number of distinct keys across all dictionaries.
func (c *Cache[V]) Len() int {
	n := 0
	for i, d := range c.dicts {
	next:
		for k := range d {
			for _, prev := range c.dicts[:i] {
				if _, ok := prev[k]; ok {
					continue next
				}
			}
			n++
		}
	}
	return n
}

// Count returns the number of entries in one variant's dictionary.
func (c *Cache[V]) Count(variant climate.Variant) int {
	return len(c.dict(variant))
}

// Capacity returns the key limit, or zero when unbounded.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

func (c *Cache[V]) dict(variant climate.Variant) map[texkey.Key]V {
	if int(variant) < 0 || int(variant) >= len(c.dicts) {
		return c.dicts[climate.General]
	}
	return c.dicts[variant]
}

func (c *Cache[V]) hasKey(key texkey.Key) bool {
	for _, d := range c.dicts {
		if _, ok := d[key]; ok {
			return true
		}
	}
	return false
}
