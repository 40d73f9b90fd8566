package fieldwork

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	appEvidence "github.com/rafall04/raf-bot-v2-sub002/internal/application/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	domainEvidence "github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// Workflow steps for on-site ticket handling.
const (
	StepAwaitOTP            session.Step = "fieldwork_await_otp"
	StepResolutionNotes     session.Step = "fieldwork_resolution_notes"
	StepAwaitCompletionCode session.Step = "fieldwork_await_completion"
)

// maxCodeAttempts bounds wrong-code retries inside one session; the
// lifecycle manager itself never consumes a code on mismatch.
const maxCodeAttempts = 3

// AssignmentPolicy caps how many tickets a technician may hold at once.
// This is deliberately a caller-side policy, not a lifecycle invariant.
type AssignmentPolicy struct {
	MaxActiveTickets int
}

// Workflow drives the technician side of a ticket (OTP entry, evidence,
// resolution) and the customer's completion confirmation.
type Workflow struct {
	lifecycle  *lifecycle.Service
	aggregator *appEvidence.Aggregator
	renderer   *render.Renderer
	policy     AssignmentPolicy
	logger     zerolog.Logger
}

func NewWorkflow(lc *lifecycle.Service, aggregator *appEvidence.Aggregator, renderer *render.Renderer, policy AssignmentPolicy, logger zerolog.Logger) *Workflow {
	return &Workflow{
		lifecycle:  lc,
		aggregator: aggregator,
		renderer:   renderer,
		policy:     policy,
		logger:     logger.With().Str("workflow", "fieldwork").Logger(),
	}
}

// RegisterHandlers binds the workflow steps to the dispatch engine.
func (w *Workflow) RegisterHandlers(e *dispatch.Engine) {
	e.Register(StepAwaitOTP, w.handleAwaitOTP)
	e.Register(StepResolutionNotes, w.handleResolutionNotes)
	e.Register(StepAwaitCompletionCode, w.handleAwaitCompletionCode)
}

// Assign takes a new ticket for a technician, enforcing the concurrent
// ticket cap before the lifecycle transition.
func (w *Workflow) Assign(ctx context.Context, tech *actor.Actor, ticketID string) []dispatch.Message {
	count, err := w.lifecycle.ActiveTicketCount(ctx, tech.Ref)
	if err != nil {
		w.logger.Error().Err(err).Str("technician", tech.Ref).Msg("active ticket count failed")
		return w.message("error.generic", nil)
	}
	if w.policy.MaxActiveTickets > 0 && count >= w.policy.MaxActiveTickets {
		return w.message("assign.cap", map[string]any{"count": count})
	}

	t, err := w.lifecycle.Assign(ctx, ticketID, tech.Ref)
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		return w.message("error.not_found", map[string]any{"ticketId": ticketID})
	case errors.Is(err, ticket.ErrAlreadyAssigned), errors.Is(err, ticket.ErrInvalidTransition):
		return w.message("assign.conflict", map[string]any{"ticketId": ticketID})
	case err != nil:
		w.logger.Error().Err(err).Str("ticket", ticketID).Msg("assign failed")
		return w.message("error.generic", nil)
	}
	return w.message("assign.ok_tech", map[string]any{"ticketId": t.ID})
}

// StartVerify opens the OTP-entry workflow for a technician, or verifies
// immediately when the code came inline with the command.
func (w *Workflow) StartVerify(ctx context.Context, tech *actor.Actor, ticketID, inlineCode string) (*session.Session, []dispatch.Message) {
	t, err := w.lifecycle.Get(ctx, ticketID)
	if err != nil {
		return nil, w.message("error.not_found", map[string]any{"ticketId": ticketID})
	}
	if t.AssignedTechnicianRef != tech.Ref {
		return nil, w.message("error.unauthorized", nil)
	}
	if inlineCode != "" {
		res, _ := w.verifyOTP(ctx, &session.Fieldwork{TicketID: ticketID}, inlineCode)
		return nil, res.Messages
	}
	sess := session.New(tech.Ref, StepAwaitOTP, &session.Fieldwork{TicketID: ticketID})
	return sess, w.message("otp.prompt", map[string]any{"ticketId": ticketID})
}

func (w *Workflow) handleAwaitOTP(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Fieldwork)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	return w.verifyOTP(ctx, p, input)
}

func (w *Workflow) verifyOTP(ctx context.Context, p *session.Fieldwork, input string) (dispatch.Result, error) {
	code := strings.TrimSpace(input)
	if len(code) != ticket.OTPDigits || !allDigits(code) {
		return dispatch.Result{Messages: w.message("otp.invalid", nil)}, nil
	}

	_, err := w.lifecycle.VerifyOTP(ctx, p.TicketID, code)
	switch {
	case err == nil:
		return dispatch.Result{Done: true, Messages: w.message("otp.ok", map[string]any{"ticketId": p.TicketID})}, nil
	case errors.Is(err, ticket.ErrMismatch):
		p.Attempts++
		if p.Attempts >= maxCodeAttempts {
			return dispatch.Result{Done: true, Messages: w.message("otp.locked", map[string]any{"ticketId": p.TicketID})}, nil
		}
		return dispatch.Result{Messages: w.message("otp.mismatch", map[string]any{"left": maxCodeAttempts - p.Attempts})}, nil
	case errors.Is(err, ticket.ErrExpired):
		return dispatch.Result{Done: true, Messages: w.message("otp.expired", map[string]any{"ticketId": p.TicketID})}, nil
	case errors.Is(err, ticket.ErrNotFound):
		return dispatch.Result{Done: true, Messages: w.message("error.not_found", map[string]any{"ticketId": p.TicketID})}, nil
	default:
		w.logger.Error().Err(err).Str("ticket", p.TicketID).Msg("otp verification failed")
		return dispatch.Result{Done: true, Messages: w.message("error.generic", nil)}, nil
	}
}

// SubmitPhoto feeds one photo into the evidence aggregator. No immediate
// reply: the aggregator answers once per flushed batch, not once per photo.
func (w *Workflow) SubmitPhoto(ctx context.Context, tech *actor.Actor, storageRef, ticketID string) []dispatch.Message {
	resolved, msgs := w.resolveEvidenceTicket(ctx, tech, ticketID)
	if resolved == "" {
		return msgs
	}
	w.aggregator.Submit(ctx, tech.Ref, resolved, domainEvidence.NewPhoto(storageRef, tech.Ref))
	return nil
}

// StartResolve opens the resolution-notes workflow for a verified ticket.
func (w *Workflow) StartResolve(ctx context.Context, tech *actor.Actor, ticketID string) (*session.Session, []dispatch.Message) {
	t, err := w.lifecycle.Get(ctx, ticketID)
	if err != nil {
		return nil, w.message("error.not_found", map[string]any{"ticketId": ticketID})
	}
	if t.AssignedTechnicianRef != tech.Ref {
		return nil, w.message("error.unauthorized", nil)
	}
	sess := session.New(tech.Ref, StepResolutionNotes, &session.Fieldwork{TicketID: ticketID})
	return sess, w.message("resolve.notes", map[string]any{"ticketId": ticketID})
}

func (w *Workflow) handleResolutionNotes(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Fieldwork)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	// Photos may keep arriving while the notes prompt is open; feed them to
	// the aggregator and stay on this step.
	if storageRef, ok := ParsePhoto(input); ok {
		w.aggregator.Submit(ctx, s.ActorID, p.TicketID, domainEvidence.NewPhoto(storageRef, s.ActorID))
		return dispatch.Result{}, nil
	}

	notes := strings.TrimSpace(input)
	if notes == "" {
		return dispatch.Result{Messages: w.message("resolve.notes", map[string]any{"ticketId": p.TicketID})}, nil
	}

	_, err := w.lifecycle.MarkResolved(ctx, p.TicketID, notes)
	switch {
	case err == nil:
		return dispatch.Result{Done: true, Messages: w.message("resolve.ok", map[string]any{"ticketId": p.TicketID})}, nil
	case errors.Is(err, ticket.ErrInsufficientEvidence):
		p.Notes = notes
		return dispatch.Result{Messages: w.message("resolve.need_evidence", map[string]any{
			"ticketId": p.TicketID,
			"min":      w.lifecycle.MinEvidence(),
		})}, nil
	case errors.Is(err, ticket.ErrNotFound):
		return dispatch.Result{Done: true, Messages: w.message("error.not_found", map[string]any{"ticketId": p.TicketID})}, nil
	case errors.Is(err, ticket.ErrInvalidTransition):
		return dispatch.Result{Done: true, Messages: w.message("error.generic", nil)}, nil
	default:
		w.logger.Error().Err(err).Str("ticket", p.TicketID).Msg("mark resolved failed")
		return dispatch.Result{Done: true, Messages: w.message("error.generic", nil)}, nil
	}
}

// StartConfirm opens the completion-confirmation workflow for a customer,
// or confirms immediately when the code came inline.
func (w *Workflow) StartConfirm(ctx context.Context, customer *actor.Actor, ticketID, inlineCode string) (*session.Session, []dispatch.Message) {
	t, err := w.lifecycle.Get(ctx, ticketID)
	if err != nil {
		return nil, w.message("error.not_found", map[string]any{"ticketId": ticketID})
	}
	if t.CustomerRef != customer.Ref {
		return nil, w.message("error.unauthorized", nil)
	}
	if inlineCode != "" {
		res, _ := w.confirmCompletion(ctx, &session.Fieldwork{TicketID: ticketID}, inlineCode)
		return nil, res.Messages
	}
	sess := session.New(customer.Ref, StepAwaitCompletionCode, &session.Fieldwork{TicketID: ticketID})
	return sess, w.message("confirm.prompt", map[string]any{"ticketId": ticketID})
}

func (w *Workflow) handleAwaitCompletionCode(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Fieldwork)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	return w.confirmCompletion(ctx, p, input)
}

func (w *Workflow) confirmCompletion(ctx context.Context, p *session.Fieldwork, input string) (dispatch.Result, error) {
	code := strings.TrimSpace(input)
	if len(code) != ticket.CompletionCodeDigits || !allDigits(code) {
		return dispatch.Result{Messages: w.message("confirm.mismatch", nil)}, nil
	}

	t, err := w.lifecycle.ConfirmCompletion(ctx, p.TicketID, code)
	switch {
	case err == nil:
		return dispatch.Result{Done: true, Messages: w.message("confirm.ok", map[string]any{
			"ticketId": t.ID,
			"duration": t.ResolutionDuration.Round(1e9).String(),
		})}, nil
	case errors.Is(err, ticket.ErrMismatch):
		p.Attempts++
		if p.Attempts >= maxCodeAttempts {
			return dispatch.Result{Done: true, Messages: w.message("error.generic", nil)}, nil
		}
		return dispatch.Result{Messages: w.message("confirm.mismatch", nil)}, nil
	case errors.Is(err, ticket.ErrExpired):
		return dispatch.Result{Done: true, Messages: w.message("confirm.expired", map[string]any{"ticketId": p.TicketID})}, nil
	case errors.Is(err, ticket.ErrNotFound):
		return dispatch.Result{Done: true, Messages: w.message("error.not_found", map[string]any{"ticketId": p.TicketID})}, nil
	default:
		w.logger.Error().Err(err).Str("ticket", p.TicketID).Msg("completion confirmation failed")
		return dispatch.Result{Done: true, Messages: w.message("error.generic", nil)}, nil
	}
}

// CancelTicket handles the cancel-ticket command for any actor role.
func (w *Workflow) CancelTicket(ctx context.Context, act *actor.Actor, ticketID, reason string) []dispatch.Message {
	t, err := w.lifecycle.Get(ctx, ticketID)
	if err != nil {
		return w.message("error.not_found", map[string]any{"ticketId": ticketID})
	}
	allowed := act.Role == actor.RoleAdmin ||
		(act.Role == actor.RoleCustomer && t.CustomerRef == act.Ref) ||
		(act.Role == actor.RoleTechnician && t.AssignedTechnicianRef == act.Ref)
	if !allowed {
		return w.message("error.unauthorized", nil)
	}

	_, err = w.lifecycle.Cancel(ctx, ticketID, act.Ref, reason)
	switch {
	case err == nil:
		return w.message("cancel.ok", map[string]any{"ticketId": ticketID})
	case errors.Is(err, ticket.ErrInvalidTransition):
		return w.message("cancel.refused", map[string]any{"ticketId": ticketID})
	case errors.Is(err, ticket.ErrNotFound):
		return w.message("error.not_found", map[string]any{"ticketId": ticketID})
	default:
		w.logger.Error().Err(err).Str("ticket", ticketID).Msg("cancel failed")
		return w.message("error.generic", nil)
	}
}

// resolveEvidenceTicket maps an optional explicit ticket ID to the ticket
// photos should attach to, falling back to the technician's single verified
// ticket.
func (w *Workflow) resolveEvidenceTicket(ctx context.Context, tech *actor.Actor, ticketID string) (string, []dispatch.Message) {
	if ticketID != "" {
		return ticketID, nil
	}
	status := ticket.StatusVerified
	verified, err := w.lifecycle.List(ctx, ticket.Filter{Status: &status, TechnicianRef: &tech.Ref})
	if err != nil {
		w.logger.Error().Err(err).Str("technician", tech.Ref).Msg("verified ticket lookup failed")
		return "", w.message("error.generic", nil)
	}
	if len(verified) != 1 {
		return "", w.message("evidence.ambiguous", nil)
	}
	return verified[0].ID, nil
}

// ParsePhoto recognizes a photo evidence submission in raw chat input and
// returns its storage reference.
func ParsePhoto(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "photo:") {
		return "", false
	}
	ref := strings.TrimSpace(trimmed[len("photo:"):])
	if ref == "" {
		return "", false
	}
	return ref, true
}

func (w *Workflow) message(key string, vars map[string]any) []dispatch.Message {
	text, ok := w.renderer.Render(key, vars)
	if !ok {
		return nil
	}
	return []dispatch.Message{{Text: text}}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
