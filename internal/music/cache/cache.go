// Package cache keeps resolved stream metadata so replaying a reference
// does not hit the provider again.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/keshon/jukebox/internal/music/track"
)

// Store caches StreamInfo by track reference. A miss and a backend error look
// the same to callers: both mean "resolve it again".
type Store interface {
	Get(ctx context.Context, key string) (*track.StreamInfo, bool)
	Set(ctx context.Context, key string, info *track.StreamInfo, ttl time.Duration)
}

type memoryEntry struct {
	info    track.StreamInfo
	expires time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (*track.StreamInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	info := e.info
	return &info, true
}

func (m *Memory) Set(_ context.Context, key string, info *track.StreamInfo, ttl time.Duration) {
	if info == nil || ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = memoryEntry{info: *info, expires: now.Add(ttl)}
}

// Len reports the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*track.StreamInfo, bool)         { return nil, false }
func (Nop) Set(context.Context, string, *track.StreamInfo, time.Duration) {}
