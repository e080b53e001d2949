// Package cache provides ProgramCache implementations for the chainmap
// evaluators.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded program cache backed by hashicorp's LRU. It satisfies
// the chainmap.ProgramCache interface and is safe for concurrent use.
type LRU struct {
	inner *lru.Cache[string, any]
}

// NewLRU constructs a cache holding at most size compiled programs. Size
// must be positive.
func NewLRU(size int) (*LRU, error) {
	inner, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &LRU{inner: inner}, nil
}

// Get returns the cached program for key, if any.
func (c *LRU) Get(key string) (any, bool) {
	if c == nil || c.inner == nil {
		return nil, false
	}
	return c.inner.Get(key)
}

// Set stores value under key, evicting the least recently used entry when
// full.
func (c *LRU) Set(key string, value any) {
	if c == nil || c.inner == nil {
		return
	}
	c.inner.Add(key, value)
}

// Len reports the number of cached programs.
func (c *LRU) Len() int {
	if c == nil || c.inner == nil {
		return 0
	}
	return c.inner.Len()
}
