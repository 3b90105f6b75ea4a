package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa/internal/metrics"
	"docqa/internal/service"
)

var errSessionNotFound = errors.New("session not found")

// SessionFactory opens a session backed by the named collection.
type SessionFactory func(ctx context.Context, collection string) (*service.Session, error)

type entry struct {
	// serialises every call into the session
	mu       sync.Mutex
	session  *service.Session
	lastUsed time.Time
	// set by release under mu; a closed session is never handed out
	closed bool
}

// Registry holds one session per caller, each on its own collection.
type Registry struct {
	factory    SessionFactory
	collection string
	idle       time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(factory SessionFactory, collection string, idle time.Duration, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		factory:    factory,
		collection: collection,
		idle:       idle,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		sessions:   make(map[string]*entry),
	}
}

// Create opens a new session and returns its id.
func (r *Registry) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	collection := r.collection + "_" + strings.ReplaceAll(id, "-", "")[:12]
	s, err := r.factory(ctx, collection)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastUsed: r.now()}
	r.mu.Unlock()
	r.metrics.SessionOpened()
	r.logger.Info("session opened", zap.String("session", id), zap.String("collection", collection))
	return id, nil
}

// With runs fn holding the session's lock.
func (r *Registry) With(id string, fn func(*service.Session)) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.lastUsed = r.now()
	}
	r.mu.Unlock()
	if !ok {
		return errSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errSessionNotFound
	}
	fn(e.session)
	return nil
}

// Close ends the session and drops its collection.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return errSessionNotFound
	}
	r.release(ctx, id, e)
	return nil
}

func (r *Registry) release(ctx context.Context, id string, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if err := e.session.Drop(ctx); err != nil {
		r.logger.Warn("drop collection failed", zap.String("session", id), zap.Error(err))
	}
	if err := e.session.Close(); err != nil {
		r.logger.Warn("close session failed", zap.String("session", id), zap.Error(err))
	}
	r.metrics.SessionClosed()
	r.logger.Info("session closed", zap.String("session", id))
}

// Sweep closes sessions unused for longer than the idle timeout.
func (r *Registry) Sweep(ctx context.Context) int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)
	expired := map[string]*entry{}
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			expired[id] = e
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for id, e := range expired {
		r.release(ctx, id, e)
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes the rest.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for id, e := range all {
		r.release(ctx, id, e)
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
