package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/sessionstore"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

// ErrNoSession is returned when Dispatch is called for an actor without an
// active session; initiating a workflow is the caller's job.
var ErrNoSession = errors.New("no active session for actor")

// Message is one outbound chat message. An empty To addresses the
// dispatching actor.
type Message struct {
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

// Result is a handler's transition decision.
type Result struct {
	Next     session.Step
	Done     bool
	Messages []Message
}

// HandlerFunc processes one inbound input for a session positioned at a
// given step. Handlers mutate the session payload and own their side-effect
// retry policy; the engine never retries.
type HandlerFunc func(ctx context.Context, s *session.Session, input string) (Result, error)

// cancelPhrases is the universal cancellation set, checked before any
// step-specific handler runs.
var cancelPhrases = map[string]struct{}{
	"cancel": {},
	"batal":  {},
	"stop":   {},
	"keluar": {},
}

// Engine routes inbound text to the handler registered for the session's
// current step. Within one actor, messages are processed strictly in
// arrival order: a per-actor lock queues a second message behind the first.
type Engine struct {
	sessions *sessionstore.Store
	renderer *render.Renderer
	logger   zerolog.Logger

	handlers map[session.Step]HandlerFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(sessions *sessionstore.Store, renderer *render.Renderer, logger zerolog.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		renderer: renderer,
		logger:   logger.With().Str("component", "dispatch").Logger(),
		handlers: make(map[session.Step]HandlerFunc),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Register binds a step to its handler. Duplicate registration is a wiring
// bug and panics at startup.
func (e *Engine) Register(step session.Step, h HandlerFunc) {
	if _, ok := e.handlers[step]; ok {
		panic(fmt.Sprintf("dispatch: handler already registered for step %q", step))
	}
	e.handlers[step] = h
}

// Start places a new session for the actor, replacing any prior one.
func (e *Engine) Start(actorID string, s *session.Session) {
	e.sessions.Put(actorID, s)
}

// HasSession reports whether the actor has a workflow in flight.
func (e *Engine) HasSession(actorID string) bool {
	return e.sessions.Has(actorID)
}

// IsCancelPhrase reports whether input is a universal cancellation phrase.
func IsCancelPhrase(input string) bool {
	_, ok := cancelPhrases[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Dispatch processes one inbound message for an actor with an active
// session.
func (e *Engine) Dispatch(ctx context.Context, actorID, rawInput string) ([]Message, error) {
	lock := e.lockFor(actorID)
	lock.Lock()
	defer lock.Unlock()

	if IsCancelPhrase(rawInput) {
		e.sessions.Delete(actorID)
		text, _ := e.renderer.Render("session.cancelled", nil)
		return []Message{{Text: text}}, nil
	}

	sess, ok := e.sessions.Get(actorID)
	if !ok {
		return nil, ErrNoSession
	}

	handler, ok := e.handlers[sess.Step]
	if !ok {
		// Unknown step is recoverable: degrade to a fresh start instead of
		// leaving the actor in a dead conversation.
		e.logger.Error().Str("actor", actorID).Str("step", string(sess.Step)).Msg("no handler for step")
		e.sessions.Delete(actorID)
		text, _ := e.renderer.Render("session.start_over", nil)
		return []Message{{Text: text}}, nil
	}

	result, err := handler(ctx, sess, rawInput)
	if err != nil {
		// Handlers convert every expected failure into a user message
		// themselves; an error here is a bug or an unguarded dependency.
		e.logger.Error().Err(err).Str("actor", actorID).Str("step", string(sess.Step)).Msg("handler failed")
		e.sessions.Put(actorID, sess)
		text, _ := e.renderer.Render("error.generic", nil)
		return []Message{{Text: text}}, nil
	}

	if result.Done {
		e.sessions.Delete(actorID)
	} else {
		if result.Next != "" {
			sess.Step = result.Next
		}
		e.sessions.Put(actorID, sess)
	}
	return result.Messages, nil
}

func (e *Engine) lockFor(actorID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.locks[actorID]; ok {
		return l
	}
	l := &sync.Mutex{}
	e.locks[actorID] = l
	return l
}
