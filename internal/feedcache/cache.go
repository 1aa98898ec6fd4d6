// Package feedcache tracks which source URLs have already been returned to a
// paginated feed consumer, so successive pages never repeat a story whose
// sources overlap one already shown. Seen-sets are scoped per client session
// rather than process-wide, so independent consumers cannot suppress each
// other's items.
package feedcache

import (
	"sync"
	"time"

	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/news"
)

// DefaultSession is used for clients that do not send a session token.
const DefaultSession = "default"

type session struct {
	urls       map[string]struct{}
	lastAccess time.Time
}

// Registry holds per-session URL seen-sets. Idle sessions are evicted after
// the configured TTL.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		sessions: make(map[string]*session),
		ttl:      ttl,
	}
}

// FilterAndAdmit walks candidates in the given order, admitting an item only
// if none of its source URLs have been shown to this session yet. Admitting an
// item records all of its source URLs. At most limit items are returned.
func (r *Registry) FilterAndAdmit(sessionID string, candidates []news.Item, limit int) []news.Item {
	if limit <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessionLocked(sessionID)

	admitted := make([]news.Item, 0, limit)
	for _, item := range candidates {
		if len(admitted) >= limit {
			break
		}
		if item.HasAnySource(s.urls) {
			continue
		}
		for _, url := range item.Sources {
			s.urls[url] = struct{}{}
		}
		admitted = append(admitted, item)
	}
	return admitted
}

// Reset clears one session's seen-set. Called when a consumer starts over
// (offset zero or an explicit reset).
func (r *Registry) Reset(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessionLocked(sessionID)
	s.urls = make(map[string]struct{})
}

// Clear drops every session and returns the number of cached URLs removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, s := range r.sessions {
		removed += len(s.urls)
	}
	r.sessions = make(map[string]*session)
	return removed
}

// Size returns the total number of cached URLs across all live sessions.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(globaltime.Now())

	total := 0
	for _, s := range r.sessions {
		total += len(s.urls)
	}
	return total
}

func (r *Registry) sessionLocked(sessionID string) *session {
	if sessionID == "" {
		sessionID = DefaultSession
	}

	now := globaltime.Now()
	r.sweepLocked(now)

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{urls: make(map[string]struct{})}
		r.sessions[sessionID] = s
	}
	s.lastAccess = now
	return s
}

func (r *Registry) sweepLocked(now time.Time) {
	cutoff := now.Add(-r.ttl)
	for id, s := range r.sessions {
		if s.lastAccess.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
