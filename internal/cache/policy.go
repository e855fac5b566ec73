package cache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Policy decides which keys leave the in-memory cache besides lazy expiry.
// Stored is called after every write and returns keys to drop; Hit is called
// on every fresh read.
type Policy interface {
	Stored(key string) (evict []string)
	Hit(key string)
}

type lazyExpiry struct{}

func (lazyExpiry) Stored(string) []string { return nil }
func (lazyExpiry) Hit(string)             {}

// LazyExpiry keeps every key until it is overwritten; the map is unbounded.
func LazyExpiry() Policy { return lazyExpiry{} }

type lruPolicy struct {
	recency *simplelru.LRU[string, struct{}]
	evicted []string
}

// LRU bounds the cache to size keys, dropping the least recently written or
// read one first. Callers must serialize access (Memory does).
func LRU(size int) (Policy, error) {
	p := &lruPolicy{}
	l, err := simplelru.NewLRU[string, struct{}](size, func(key string, _ struct{}) {
		p.evicted = append(p.evicted, key)
	})
	if err != nil {
		return nil, fmt.Errorf("lru policy: %w", err)
	}
	p.recency = l
	return p, nil
}

func (p *lruPolicy) Stored(key string) []string {
	p.recency.Add(key, struct{}{})
	out := p.evicted
	p.evicted = nil
	return out
}

func (p *lruPolicy) Hit(key string) {
	p.recency.Get(key)
}
