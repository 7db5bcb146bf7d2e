package dragdrop

import (
	"errors"
	"sync"
	"time"
)

var ErrNotDragging = errors.New("no scene is being dragged")

const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Registry keeps one Session per user session key. Sessions idle for longer
// than the TTL are dropped by the cleanup loop.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry creates a registry. A ttl <= 0 uses DefaultIdleTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// For returns the session for key, creating it on first use.
func (r *Registry) For(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[key]; ok {
		e.lastUsed = r.now()
		return e.session
	}
	s := NewSession()
	r.sessions[key] = &entry{session: s, lastUsed: r.now()}
	return s
}

// Forget removes the session for key, e.g. on logout.
func (r *Registry) Forget(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for key, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps every interval until Close is called.
func (r *Registry) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup loop and waits for it to exit.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}
