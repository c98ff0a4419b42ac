package viewstate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

// Factory builds a Session for a new session id.
type Factory func(id string) *Session

// Registry owns the live sessions of one process and evicts idle ones.
type Registry struct {
	factory Factory
	idleTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		factory:  factory,
		idleTTL:  idleTTL,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Get returns the session for id, creating and booting it when absent.
// An empty or unparsable id gets a fresh one; the id in use is returned.
func (r *Registry) Get(id string) (*Session, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, id
	}
	s := r.factory(id)
	r.sessions[id] = s
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := s.Boot(r.ctx); err != nil && r.ctx.Err() == nil {
			logger.Warn("session_boot_failed", "session_id", id, "error", err)
		}
	}()
	logger.Info("session_created", "session_id", id)
	return s, id
}

// Lookup returns an existing session without creating one.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := timeutil.Now().Add(-r.idleTTL)
	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range stale {
		s.Close()
		logger.Info("session_evicted", "session_id", s.ID())
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Close closes every session and waits for pending boots.
func (r *Registry) Close() {
	r.cancel()
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
	r.wg.Wait()
}
