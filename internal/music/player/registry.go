package player

import (
	"sort"
	"sync"
)

// Registry holds at most one Session per guild.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the guild's session, creating it on first use.
func (r *Registry) GetOrCreate(guildID string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[guildID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s = newSession(guildID)
	r.sessions[guildID] = s
	return s
}

// Get returns nil when the guild has no session.
func (r *Registry) Get(guildID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[guildID]
}

// Remove unregisters and returns the guild's session, or nil.
func (r *Registry) Remove(guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[guildID]
	delete(r.sessions, guildID)
	return s
}

// All returns every live session ordered by guild ID.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].guildID < out[j].guildID })
	return out
}
