package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender delivers one rendered message to one actor.
type Sender interface {
	Send(ctx context.Context, actorRef, text string) error
}

// Fanout wraps a Sender with the best-effort contract: delivery failures
// are logged and never propagated, so a failed secondary notification can
// never fail the operation that triggered it.
type Fanout struct {
	sender Sender
	logger zerolog.Logger
}

func NewFanout(sender Sender, logger zerolog.Logger) *Fanout {
	return &Fanout{
		sender: sender,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Notify delivers to a single actor, best-effort.
func (f *Fanout) Notify(ctx context.Context, actorRef, text string) {
	if text == "" {
		return
	}
	if err := f.sender.Send(ctx, actorRef, text); err != nil {
		f.logger.Warn().Err(err).Str("actor", actorRef).Msg("notification delivery failed")
	}
}

// NotifyAll delivers to every actor in refs, best-effort per recipient.
func (f *Fanout) NotifyAll(ctx context.Context, refs []string, text string) {
	for _, ref := range refs {
		f.Notify(ctx, ref, text)
	}
}
