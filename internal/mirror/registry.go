package mirror

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/metrics"
)

var ErrSessionNotFound = errors.New("mirror: session not found")

// Registry holds live sessions in a size- and idle-bounded LRU. Every Get
// restarts a session's TTL. Evicted sessions are handed to the discard hook
// so their voice streams and reel jobs are released.
type Registry struct {
	mu        sync.Mutex
	cache     *expirable.LRU[string, *Session]
	onDiscard func(Discarded)
}

func NewRegistry(size int, ttl time.Duration, onDiscard func(Discarded)) *Registry {
	r := &Registry{onDiscard: onDiscard}
	r.cache = expirable.NewLRU[string, *Session](size, r.evicted, ttl)
	return r
}

// evicted runs under the cache lock; cleanup happens off it.
func (r *Registry) evicted(key string, s *Session) {
	d := s.discarded()
	if d.ID != key {
		// Re-keyed by Reset, which handles its own cleanup.
		return
	}
	metrics.ActiveSessions.Dec()
	log.Debug().Str("sessionId", key).Msg("Session evicted")
	if r.onDiscard != nil {
		go r.onDiscard(d)
	}
}

func (r *Registry) Create() *Session {
	s := newSession()
	r.cache.Add(s.id, s)
	metrics.ActiveSessions.Inc()
	log.Info().Str("sessionId", s.id).Msg("Session created")
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.cache.Get(id)
	if ok {
		// Add on a present key only moves its expiry forward.
		r.cache.Add(id, s)
	}
	return s, ok
}

// Reset gives the session a new ID and empty state. The old ID stops
// resolving.
func (r *Registry) Reset(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.cache.Get(id)
	if !ok {
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	old := s.reset()
	r.cache.Remove(id)
	r.cache.Add(s.ID(), s)
	r.mu.Unlock()
	if r.onDiscard != nil {
		r.onDiscard(old)
	}
	log.Info().Str("oldSessionId", id).Str("sessionId", s.ID()).Msg("Session reset")
	return s, nil
}

func (r *Registry) Len() int { return r.cache.Len() }
