package evidence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	domainEvidence "github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// Aggregator collects evidence units submitted in quick succession by one
// actor for one ticket into a single logical submission, so ten photos
// produce one summary reply instead of ten. Batches flush on a debounce
// window measured from the most recent item, or immediately at capacity.
type Aggregator struct {
	lifecycle *lifecycle.Service
	fanout    *notify.Fanout
	renderer  *render.Renderer
	debounce  time.Duration
	capacity  int
	logger    zerolog.Logger

	mu      sync.Mutex
	batches map[string]*batch
}

// batch state is keyed by actor; the ticket is part of the batch so that
// switching tickets mid-batch flushes the old one first.
type batch struct {
	ticketID string
	items    []domainEvidence.Unit
	openedAt time.Time
	timer    *time.Timer
	gen      uint64
}

func NewAggregator(lc *lifecycle.Service, fanout *notify.Fanout, renderer *render.Renderer, debounce time.Duration, capacity int, logger zerolog.Logger) *Aggregator {
	if capacity <= 0 {
		capacity = 10
	}
	return &Aggregator{
		lifecycle: lc,
		fanout:    fanout,
		renderer:  renderer,
		debounce:  debounce,
		capacity:  capacity,
		logger:    logger.With().Str("component", "evidence_aggregator").Logger(),
		batches:   make(map[string]*batch),
	}
}

// Submit adds one evidence unit to the actor's open batch for ticketID and
// returns the count collected so far.
func (a *Aggregator) Submit(ctx context.Context, actorID, ticketID string, item domainEvidence.Unit) int {
	a.mu.Lock()

	b, ok := a.batches[actorID]
	if ok && b.ticketID != ticketID {
		// Ticket switch: the old batch must not lose items, flush it now.
		a.detachLocked(actorID, b)
		a.mu.Unlock()
		a.flush(ctx, actorID, b)
		a.mu.Lock()
		ok = false
	}
	if !ok {
		b = &batch{ticketID: ticketID, openedAt: time.Now().UTC()}
		a.batches[actorID] = b
	}

	b.items = append(b.items, item)
	count := len(b.items)

	if count >= a.capacity {
		a.detachLocked(actorID, b)
		a.mu.Unlock()
		a.flush(ctx, actorID, b)
		return count
	}

	a.rescheduleLocked(actorID, b)
	a.mu.Unlock()
	return count
}

// Close cancels all pending flush timers; buffered items are dropped.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, b := range a.batches {
		if b.timer != nil {
			b.timer.Stop()
		}
		delete(a.batches, id)
	}
}

// rescheduleLocked resets the debounce timer; must hold the lock.
func (a *Aggregator) rescheduleLocked(actorID string, b *batch) {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(a.debounce, func() {
		a.expire(actorID, b, gen)
	})
}

// detachLocked removes the batch from the map and invalidates its timer so
// a concurrent debounce fire becomes a no-op; must hold the lock.
func (a *Aggregator) detachLocked(actorID string, b *batch) {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	delete(a.batches, actorID)
}

// expire is the debounce callback. The generation guards against a timer
// beaten by a later Submit on the same batch; the pointer comparison guards
// against a timer whose batch was detached and replaced, since a fresh batch
// restarts its generation and could otherwise collide.
func (a *Aggregator) expire(actorID string, armed *batch, gen uint64) {
	a.mu.Lock()
	b, ok := a.batches[actorID]
	if !ok || b != armed || b.gen != gen {
		a.mu.Unlock()
		return
	}
	a.detachLocked(actorID, b)
	a.mu.Unlock()
	a.flush(context.Background(), actorID, b)
}

// flush attaches the accumulated items to the ticket and emits one
// consolidated summary message.
func (a *Aggregator) flush(ctx context.Context, actorID string, b *batch) {
	if len(b.items) == 0 {
		return
	}
	vars := map[string]any{"ticketId": b.ticketID, "count": len(b.items)}

	_, err := a.lifecycle.AttachEvidence(ctx, b.ticketID, b.items)
	if err != nil {
		a.logger.Warn().Err(err).Str("ticket", b.ticketID).Int("items", len(b.items)).Msg("evidence flush failed")
		reason := "The ticket is not in a state that accepts photos."
		if err == ticket.ErrNotFound {
			reason = "The ticket does not exist."
		}
		vars["reason"] = reason
		if text, ok := a.renderer.Render("evidence.failed", vars); ok {
			a.fanout.Notify(ctx, actorID, text)
		}
		return
	}

	a.logger.Info().Str("ticket", b.ticketID).Int("items", len(b.items)).Msg("evidence batch flushed")
	if text, ok := a.renderer.Render("evidence.flushed", vars); ok {
		a.fanout.Notify(ctx, actorID, text)
	}
}
