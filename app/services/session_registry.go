package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/farhadmsg/blastline/utils"
)

// SessionState is the lifecycle state of one bridge session.
type SessionState string

const (
	SessionStateConnecting   SessionState = "connecting"
	SessionStateOpen         SessionState = "open"
	SessionStateClosed       SessionState = "closed"
	SessionStateReconnecting SessionState = "reconnecting"
)

// SessionEvent drives the per-session state machine.
type SessionEvent string

const (
	SessionEventConnected    SessionEvent = "connected"
	SessionEventDisconnected SessionEvent = "disconnected"
	SessionEventClosed       SessionEvent = "closed"
)

// DialFunc establishes the underlying bridge connection for a session.
type DialFunc func(ctx context.Context, sessionID string) error

// Session is one bridge connection with an explicit lifecycle. Reconnects
// are bounded: after maxRetries failed attempts the session closes for good
// and must be recreated explicitly.
type Session struct {
	ID string

	mu      sync.RWMutex
	state   SessionState
	retries int

	events chan SessionEvent
	done   chan struct{}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Signal feeds an event into the session state machine. Events on a closed
// session are dropped.
func (s *Session) Signal(event SessionEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

// SessionRegistry owns all bridge sessions in the process. It is injected
// wherever session access is needed; there is no package-level registry.
type SessionRegistry interface {
	Create(ctx context.Context, sessionID string) (*Session, error)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	List() []string
}

// SessionRegistryImpl implements SessionRegistry
type SessionRegistryImpl struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	dial       DialFunc
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSessionRegistry(dial DialFunc, logger *log.Logger) *SessionRegistryImpl {
	return &SessionRegistryImpl{
		sessions:   make(map[string]*Session),
		dial:       dial,
		maxRetries: utils.MaxSessionRetries,
		baseDelay:  utils.SessionRetryBaseDelay,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create dials a new session and starts its state machine. Creating an id
// that already exists is an error; callers Delete first.
func (r *SessionRegistryImpl) Create(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	if _, exists := r.sessions[sessionID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("session %q already exists", sessionID)
	}
	session := &Session{
		ID:     sessionID,
		state:  SessionStateConnecting,
		events: make(chan SessionEvent, 8),
		done:   make(chan struct{}),
	}
	r.sessions[sessionID] = session
	r.mu.Unlock()

	if err := r.dial(ctx, sessionID); err != nil {
		r.Delete(sessionID)
		return nil, fmt.Errorf("failed to dial session %q: %w", sessionID, err)
	}
	session.setState(SessionStateOpen)

	go r.run(ctx, session)
	return session, nil
}

func (r *SessionRegistryImpl) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

func (r *SessionRegistryImpl) Delete(sessionID string) {
	r.mu.Lock()
	session, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		session.setState(SessionStateClosed)
		close(session.done)
	}
}

func (r *SessionRegistryImpl) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// run consumes session events. A disconnect moves the session through
// Reconnecting with jittered backoff; retries are bounded and a session that
// exhausts them is removed from the registry.
func (r *SessionRegistryImpl) run(ctx context.Context, session *Session) {
	for {
		select {
		case <-ctx.Done():
			r.Delete(session.ID)
			return
		case <-session.done:
			return
		case event := <-session.events:
			switch event {
			case SessionEventConnected:
				session.mu.Lock()
				session.state = SessionStateOpen
				session.retries = 0
				session.mu.Unlock()
			case SessionEventClosed:
				r.logger.Printf("session %s closed", session.ID)
				r.Delete(session.ID)
				return
			case SessionEventDisconnected:
				if !r.reconnect(ctx, session) {
					r.logger.Printf("session %s exhausted %d reconnect attempts", session.ID, r.maxRetries)
					r.Delete(session.ID)
					return
				}
			}
		}
	}
}

// reconnect attempts bounded redials with jittered exponential backoff.
func (r *SessionRegistryImpl) reconnect(ctx context.Context, session *Session) bool {
	session.setState(SessionStateReconnecting)

	for {
		session.mu.Lock()
		session.retries++
		attempt := session.retries
		session.mu.Unlock()

		if attempt > r.maxRetries {
			return false
		}

		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		delay += r.jitter(delay / 2)
		r.logger.Printf("session %s reconnect attempt %d in %s", session.ID, attempt, delay)

		select {
		case <-ctx.Done():
			return false
		case <-session.done:
			return false
		case <-time.After(delay):
		}

		session.setState(SessionStateConnecting)
		if err := r.dial(ctx, session.ID); err != nil {
			r.logger.Printf("session %s reconnect failed: %v", session.ID, err)
			session.setState(SessionStateReconnecting)
			continue
		}

		session.mu.Lock()
		session.state = SessionStateOpen
		session.retries = 0
		session.mu.Unlock()
		return true
	}
}

func (r *SessionRegistryImpl) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return time.Duration(r.rng.Int63n(int64(max)))
}
