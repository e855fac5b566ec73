// Package cache memoizes fetched video transcripts per video id for a fixed
// time window.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/forPelevin/fallacycheck/internal/types"
)

// DefaultTTL is how long a fetched transcript stays fresh.
const DefaultTTL = 30 * time.Minute

type entry struct {
	data      types.VideoData
	expiresAt time.Time
}

// Memory is an in-process cache. Expired entries are not swept; they are
// ignored on read and replaced on the next Put for the same key. Which keys
// get dropped to bound the map is decided by the Policy.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	policy  Policy
	now     func() time.Time
}

type Option func(*Memory)

func WithPolicy(p Policy) Option {
	return func(m *Memory) { m.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		policy:  LazyExpiry(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, videoID string) (types.VideoData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[videoID]
	if !ok || !m.now().Before(e.expiresAt) {
		return types.VideoData{}, false, nil
	}
	m.policy.Hit(videoID)
	return e.data, true, nil
}

func (m *Memory) Put(_ context.Context, videoID string, data types.VideoData, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[videoID] = entry{data: data, expiresAt: m.now().Add(ttl)}
	for _, k := range m.policy.Stored(videoID) {
		delete(m.entries, k)
	}
	return nil
}

// Len reports stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
