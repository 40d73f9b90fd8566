package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// Options tunes the lifecycle validity windows and evidence floor.
type Options struct {
	OTPTTL            time.Duration
	CompletionCodeTTL time.Duration
	MinEvidence       int
	PriorityRules     []PriorityRule
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		OTPTTL:            4 * time.Hour,
		CompletionCodeTTL: 2 * time.Hour,
		MinEvidence:       2,
		PriorityRules:     DefaultPriorityRules,
	}
}

// Service owns the incident-ticket entity and its state transitions. Writes
// are single-writer per ticket: every mutation runs under a per-ticket lock
// around its load-check-save, so two concurrent assigns on the same new
// ticket see exactly one success and one AlreadyAssigned.
type Service struct {
	repo     ticket.Repository
	fanout   *notify.Fanout
	renderer *render.Renderer
	opts     Options
	logger   zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo ticket.Repository, fanout *notify.Fanout, renderer *render.Renderer, opts Options, logger zerolog.Logger) *Service {
	if opts.MinEvidence <= 0 {
		opts.MinEvidence = 2
	}
	return &Service{
		repo:     repo,
		fanout:   fanout,
		renderer: renderer,
		opts:     opts,
		logger:   logger.With().Str("service", "lifecycle").Logger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// CreateTicket registers a new incident, deriving priority from the triage
// answers.
func (s *Service) CreateTicket(ctx context.Context, customerRef, deviceRef, symptom string, answers map[string]any) (*ticket.Ticket, error) {
	priority := DerivePriority(s.opts.PriorityRules, answers, s.logger)
	t := ticket.New(customerRef, deviceRef, symptom, priority)
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.logger.Info().Str("ticket", t.ID).Str("priority", string(t.Priority)).Str("customer", customerRef).Msg("ticket created")
	return t, nil
}

// Assign hands a ticket to a technician and delivers the fresh OTP to the
// customer, who relays it to the technician at the door.
func (s *Service) Assign(ctx context.Context, ticketID, technicianRef string) (*ticket.Ticket, error) {
	var otp string
	t, err := s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		var err error
		otp, err = t.Assign(technicianRef, s.opts.OTPTTL, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	if text, ok := s.renderer.Render("assign.ok_customer", map[string]any{
		"ticketId":   t.ID,
		"technician": technicianRef,
		"otp":        otp,
		"hours":      int(s.opts.OTPTTL.Hours()),
	}); ok {
		s.fanout.Notify(ctx, t.CustomerRef, text)
	}
	s.logger.Info().Str("ticket", t.ID).Str("technician", technicianRef).Msg("ticket assigned")
	return t, nil
}

// VerifyOTP consumes the on-site code. An expired code is persisted as
// cleared so the ticket visibly requires reassignment.
func (s *Service) VerifyOTP(ctx context.Context, ticketID, candidate string) (*ticket.Ticket, error) {
	var verifyErr error
	t, err := s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		verifyErr = t.VerifyOTP(candidate, s.opts.OTPTTL, time.Now().UTC())
		if errors.Is(verifyErr, ticket.ErrExpired) {
			// The entity cleared the lapsed code; persist that even though
			// the verification itself failed.
			return nil
		}
		return verifyErr
	})
	if err != nil {
		return nil, err
	}
	if verifyErr != nil {
		return t, verifyErr
	}
	if text, ok := s.renderer.Render("otp.ok_customer", map[string]any{"ticketId": t.ID}); ok {
		s.fanout.Notify(ctx, t.CustomerRef, text)
	}
	s.logger.Info().Str("ticket", t.ID).Msg("technician verified on-site")
	return t, nil
}

// AttachEvidence appends evidence units to a verified ticket.
func (s *Service) AttachEvidence(ctx context.Context, ticketID string, units []evidence.Unit) (*ticket.Ticket, error) {
	return s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		return t.AttachEvidence(units, time.Now().UTC())
	})
}

// MarkResolved closes out field work: records notes, issues the completion
// code and delivers it to the customer.
func (s *Service) MarkResolved(ctx context.Context, ticketID, notes string) (*ticket.Ticket, error) {
	var code string
	t, err := s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		var err error
		code, err = t.MarkResolved(notes, s.opts.MinEvidence, s.opts.CompletionCodeTTL, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	if text, ok := s.renderer.Render("resolve.ok_customer", map[string]any{
		"ticketId": t.ID,
		"code":     code,
		"hours":    int(s.opts.CompletionCodeTTL.Hours()),
	}); ok {
		s.fanout.Notify(ctx, t.CustomerRef, text)
	}
	s.logger.Info().Str("ticket", t.ID).Int("evidence", len(t.Evidence)).Msg("ticket awaiting confirmation")
	return t, nil
}

// ConfirmCompletion consumes the customer's completion code and resolves
// the ticket, stamping the resolution duration.
func (s *Service) ConfirmCompletion(ctx context.Context, ticketID, candidate string) (*ticket.Ticket, error) {
	t, err := s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		return t.ConfirmCompletion(candidate, s.opts.CompletionCodeTTL, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	if t.AssignedTechnicianRef != "" {
		if text, ok := s.renderer.Render("confirm.ok_tech", map[string]any{"ticketId": t.ID}); ok {
			s.fanout.Notify(ctx, t.AssignedTechnicianRef, text)
		}
	}
	s.logger.Info().Str("ticket", t.ID).Dur("resolution", t.ResolutionDuration).Msg("ticket resolved")
	return t, nil
}

// Cancel closes a ticket that has not reached verified work.
func (s *Service) Cancel(ctx context.Context, ticketID, actorRef, reason string) (*ticket.Ticket, error) {
	t, err := s.mutate(ctx, ticketID, func(t *ticket.Ticket) error {
		return t.Cancel(actorRef, reason, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	if t.AssignedTechnicianRef != "" && t.AssignedTechnicianRef != actorRef {
		if text, ok := s.renderer.Render("cancel.ok", map[string]any{"ticketId": t.ID}); ok {
			s.fanout.Notify(ctx, t.AssignedTechnicianRef, text)
		}
	}
	s.logger.Info().Str("ticket", t.ID).Str("by", actorRef).Msg("ticket cancelled")
	return t, nil
}

// Get returns a ticket or ticket.ErrNotFound.
func (s *Service) Get(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ticket.ErrNotFound
	}
	return t, nil
}

// List returns tickets matching the filter.
func (s *Service) List(ctx context.Context, filter ticket.Filter) ([]*ticket.Ticket, error) {
	return s.repo.List(ctx, filter)
}

// MinEvidence returns the configured evidence floor for resolution.
func (s *Service) MinEvidence() int {
	return s.opts.MinEvidence
}

// ActiveTicketCount counts non-terminal tickets held by a technician.
func (s *Service) ActiveTicketCount(ctx context.Context, technicianRef string) (int, error) {
	return s.repo.CountActiveByTechnician(ctx, technicianRef)
}

// mutate runs fn over the loaded ticket under the per-ticket lock and
// persists the result when fn succeeds.
func (s *Service) mutate(ctx context.Context, ticketID string, fn func(*ticket.Ticket) error) (*ticket.Ticket, error) {
	lock := s.lockFor(ticketID)
	lock.Lock()
	defer lock.Unlock()

	t, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ticket.ErrNotFound
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update ticket %s: %w", ticketID, err)
	}
	return t, nil
}

func (s *Service) lockFor(ticketID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[ticketID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[ticketID] = l
	return l
}
