package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("booking session not found")

// Factory builds a fresh machine for a user.
type Factory func(userID string) *Machine

type session struct {
	machine  *Machine
	userID   string
	lastSeen time.Time
}

// Registry holds live booking sessions and closes the ones left idle.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  Factory
	idleTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewRegistry(factory Factory, idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*session),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens a session and restores a still-cancellable booking for the user, if any.
func (r *Registry) Start(ctx context.Context, userID string) (string, *Machine) {
	m := r.factory(userID)
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = &session{machine: m, userID: userID, lastSeen: r.now()}
	r.mu.Unlock()

	if err := m.Resume(ctx); err != nil {
		r.logger.Warn("resume booking session", zap.String("session_id", id), zap.Error(err))
	}
	return id, m
}

func (r *Registry) Get(id, userID string) (*Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = r.now()
	return s.machine, nil
}

func (r *Registry) End(id, userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.userID != userID {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	s.machine.Close()
	return nil
}

// Sweep closes sessions idle for longer than the TTL and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.machine.Close()
	}
	return len(idle)
}

func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("evicted idle booking sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			r.Close()
			return
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.machine.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
