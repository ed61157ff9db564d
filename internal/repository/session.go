package repository

import (
	"context"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/service"
)

var ErrSessionNotFound = errors.New("session not found")

// Session binds a generator to an ID and tracks its last use.
type Session struct {
	ID        string
	Generator *service.Generator
	CreatedAt time.Time
	lastSeen  time.Time
	holds     int
}

// SessionRepository keeps generator sessions in memory. Nothing survives a restart.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  func() (*service.Generator, error)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionRepository creates a repository whose sessions expire after ttl of
// inactivity. factory builds the generator for each new session.
func NewSessionRepository(ttl time.Duration, factory func() (*service.Generator, error)) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
	}
}

// Start runs the idle sweep until ctx is done or Close is called.
func (r *SessionRepository) Start(ctx context.Context, every time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(time.Now()); n > 0 {
					zerolog.Ctx(ctx).Info().Int("expired", n).Msg("sessions.swept")
				}
			}
		}
	}()
}

// Create starts a new session with a fresh generator.
func (r *SessionRepository) Create(ctx context.Context) (*Session, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, errors.Wrap(err, "generate session id")
	}

	gen, err := r.factory()
	if err != nil {
		return nil, errors.Wrap(err, "new generator")
	}

	now := time.Now()
	s := &Session{ID: id, Generator: gen, CreatedAt: now, lastSeen: now}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("session_id", id).Msg("session.created")
	return s, nil
}

// Get returns the session and marks it as used.
func (r *SessionRepository) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = time.Now()
	return s, nil
}

// Hold marks the session as in use until release is called. A held session
// is never swept, and releasing it counts as a use.
func (r *SessionRepository) Hold(_ context.Context, id string) (release func(), err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.holds++
	s.lastSeen = time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			s.holds--
			s.lastSeen = time.Now()
		})
	}, nil
}

// Delete removes the session and tears down its generator.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.Generator.Close()
	zerolog.Ctx(ctx).Debug().Str("session_id", id).Msg("session.deleted")
	return nil
}

// Sweep closes unheld sessions idle for longer than the ttl and returns how
// many it removed.
func (r *SessionRepository) Sweep(now time.Time) int {
	var expired []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.holds == 0 && now.Sub(s.lastSeen) > r.ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Generator.Close()
	}
	return len(expired)
}

func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the sweep and tears down every session.
func (r *SessionRepository) Close() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	for _, s := range sessions {
		s.Generator.Close()
	}
}
