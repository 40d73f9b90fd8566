package sessionstore

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

// ExpiryFunc is invoked after a session lapses from inactivity. Called
// outside the store lock.
type ExpiryFunc func(actorID string, s *session.Session)

// Store keeps at most one active workflow session per actor, expiring each
// after a window of inactivity. Reads extend the lease: a slow human typing
// across several messages never loses progress mid-flow.
type Store struct {
	ttl      time.Duration
	onExpire ExpiryFunc
	logger   zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	session *session.Session
	timer   *time.Timer
	// gen invalidates a scheduled expiry that lost the race against a
	// concurrent Get/Put/Delete; firing and cancellation commute.
	gen uint64
}

// New creates a store with the given inactivity TTL. onExpire may be nil.
func New(ttl time.Duration, onExpire ExpiryFunc, logger zerolog.Logger) *Store {
	return &Store{
		ttl:      ttl,
		onExpire: onExpire,
		logger:   logger.With().Str("component", "session_store").Logger(),
		entries:  make(map[string]*entry),
	}
}

// Get returns the actor's current session if present, refreshing its
// activity timestamp and rescheduling expiry.
func (s *Store) Get(actorID string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[actorID]
	if !ok {
		return nil, false
	}
	e.session.Touch(time.Now().UTC())
	s.reschedule(actorID, e)
	return e.session, true
}

// Put replaces any existing session for the actor (last-writer-wins) and
// (re)starts the expiry timer.
func (s *Store) Put(actorID string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[actorID]; ok {
		old.timer.Stop()
	}
	e := &entry{session: sess}
	s.entries[actorID] = e
	sess.Touch(time.Now().UTC())
	s.reschedule(actorID, e)
}

// Delete removes the actor's session and cancels its expiry timer. Deleting
// an absent session is a no-op.
func (s *Store) Delete(actorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[actorID]; ok {
		e.timer.Stop()
		delete(s.entries, actorID)
	}
}

// Has reports whether the actor currently holds a session.
func (s *Store) Has(actorID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[actorID]
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops all expiry timers without firing callbacks.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
}

// reschedule must be called with the lock held.
func (s *Store) reschedule(actorID string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(s.ttl, func() {
		s.expire(actorID, e, gen)
	})
}

// expire is the timer callback. The generation guards against a timer that
// lost the race to a Get on the same entry; the pointer comparison guards
// against a timer whose entry was replaced wholesale by Put, since a fresh
// entry restarts its generation and could otherwise collide.
func (s *Store) expire(actorID string, armed *entry, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[actorID]
	if !ok || e != armed || e.gen != gen {
		// Activity or an explicit delete beat the timer.
		s.mu.Unlock()
		return
	}
	delete(s.entries, actorID)
	expired := e.session
	s.mu.Unlock()

	s.logger.Debug().Str("actor", actorID).Str("step", string(expired.Step)).Msg("session expired")
	if s.onExpire != nil {
		s.onExpire(actorID, expired)
	}
}
