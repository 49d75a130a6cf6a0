package sale

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/counter-pos/internal/domain/catalog"
)

// Registry keeps the open composing sessions. Sessions are never shared: each
// id maps to exactly one cart.
type Registry struct {
	catalog catalog.Source
	gateway Gateway
	tracer  trace.Tracer

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates a Registry whose sessions price against src and submit
// through gw. A nil tp disables tracing.
func NewRegistry(src catalog.Source, gw Gateway, tp trace.TracerProvider) *Registry {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Registry{
		catalog:  src,
		gateway:  gw,
		tracer:   tp.Tracer("github.com/xenking/counter-pos/internal/domain/sale"),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open starts a new session with a fresh cart.
func (r *Registry) Open() *Session {
	s := newSession(r.catalog, r.gateway, r.tracer)

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	return s
}

// Get returns the open session with the given id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close cancels the session and forgets it.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Cancel()
	return nil
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict cancels and forgets sessions unused since before cutoff and returns
// how many were dropped. Sessions with a submission in flight are kept.
func (r *Registry) Evict(cutoff time.Time) int {
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.idle(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Cancel()
	}
	return len(stale)
}

// EvictIdle drops sessions idle for longer than ttl, checking every ttl
// until ctx is done. A non-positive ttl keeps sessions until closed.
func (r *Registry) EvictIdle(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := r.Evict(now.Add(-ttl)); n > 0 {
					zctx.From(ctx).Info("Evicted idle sessions",
						zap.Int("count", n),
						zap.Int("open_sessions", r.Len()),
					)
				}
			}
		}
	}()
}
