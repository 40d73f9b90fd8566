package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

// Workflow steps for incident-report triage.
const (
	StepSymptom      session.Step = "triage_symptom"
	StepSymptomFree  session.Step = "triage_symptom_free"
	StepReachability session.Step = "triage_reachability"
)

// Symptom codes recorded in the triage answers; the priority rules match on
// these.
const (
	SymptomNoInternet   = "no_internet"
	SymptomSlow         = "slow"
	SymptomIntermittent = "intermittent"
	SymptomOther        = "other"
)

// Workflow walks a customer through incident triage and opens a ticket.
type Workflow struct {
	lifecycle *lifecycle.Service
	gateway   device.Gateway
	directory actor.Directory
	fanout    *notify.Fanout
	renderer  *render.Renderer
	logger    zerolog.Logger
}

func NewWorkflow(lc *lifecycle.Service, gateway device.Gateway, directory actor.Directory, fanout *notify.Fanout, renderer *render.Renderer, logger zerolog.Logger) *Workflow {
	return &Workflow{
		lifecycle: lc,
		gateway:   gateway,
		directory: directory,
		fanout:    fanout,
		renderer:  renderer,
		logger:    logger.With().Str("workflow", "triage").Logger(),
	}
}

// RegisterHandlers binds the workflow steps to the dispatch engine.
func (w *Workflow) RegisterHandlers(e *dispatch.Engine) {
	e.Register(StepSymptom, w.handleSymptom)
	e.Register(StepSymptomFree, w.handleSymptomFree)
	e.Register(StepReachability, w.handleReachability)
}

// Start begins incident triage for a customer.
func (w *Workflow) Start(act *actor.Actor) (*session.Session, []dispatch.Message) {
	payload := &session.Triage{
		DeviceRef: act.DeviceRef,
		Answers:   map[string]any{},
	}
	sess := session.New(act.Ref, StepSymptom, payload)
	text, _ := w.renderer.Render("triage.symptom", nil)
	return sess, []dispatch.Message{{Text: text}}
}

func (w *Workflow) handleSymptom(_ context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Triage)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	switch strings.TrimSpace(input) {
	case "1":
		p.Symptom = SymptomNoInternet
	case "2":
		p.Symptom = SymptomSlow
	case "3":
		p.Symptom = SymptomIntermittent
	case "4":
		text, _ := w.renderer.Render("triage.symptom_free", nil)
		return dispatch.Result{Next: StepSymptomFree, Messages: []dispatch.Message{{Text: text}}}, nil
	default:
		text, _ := w.renderer.Render("triage.symptom", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	p.Answers["symptom"] = p.Symptom
	text, _ := w.renderer.Render("triage.reachability", nil)
	return dispatch.Result{Next: StepReachability, Messages: []dispatch.Message{{Text: text}}}, nil
}

func (w *Workflow) handleSymptomFree(_ context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Triage)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	desc := strings.TrimSpace(input)
	if desc == "" {
		text, _ := w.renderer.Render("triage.symptom_free", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	p.Symptom = SymptomOther + ": " + desc
	p.Answers["symptom"] = SymptomOther
	text, _ := w.renderer.Render("triage.reachability", nil)
	return dispatch.Result{Next: StepReachability, Messages: []dispatch.Message{{Text: text}}}, nil
}

func (w *Workflow) handleReachability(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.Triage)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	var lightOn bool
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "ya":
		lightOn = true
	case "no", "n", "tidak":
		lightOn = false
	default:
		text, _ := w.renderer.Render("triage.reachability", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	p.Answers["routerLightOn"] = lightOn
	p.Answers["deviceUnreachable"] = w.deviceUnreachable(ctx, p.DeviceRef, lightOn)

	t, err := w.lifecycle.CreateTicket(ctx, s.ActorID, p.DeviceRef, p.Symptom, p.Answers)
	if err != nil {
		w.logger.Error().Err(err).Str("actor", s.ActorID).Msg("ticket creation failed")
		text, _ := w.renderer.Render("error.generic", nil)
		return dispatch.Result{Done: true, Messages: []dispatch.Message{{Text: text}}}, nil
	}

	w.alertTechnicians(ctx, t.ID, string(t.Priority), t.Symptom, s.ActorID)

	text, _ := w.renderer.Render("triage.created", map[string]any{
		"ticketId": t.ID,
		"priority": string(t.Priority),
	})
	return dispatch.Result{Done: true, Messages: []dispatch.Message{{Text: text}}}, nil
}

// deviceUnreachable combines the customer's answer with a backend probe; a
// probe failure counts as unreachable only if the customer also reports the
// router dark.
func (w *Workflow) deviceUnreachable(ctx context.Context, deviceRef string, lightOn bool) bool {
	if !lightOn {
		return true
	}
	snap, err := w.gateway.QueryDeviceSnapshot(ctx, deviceRef)
	if err != nil || snap == nil {
		w.logger.Debug().Err(err).Str("device", deviceRef).Msg("snapshot probe failed during triage")
		return false
	}
	return !snap.Online
}

// alertTechnicians broadcasts the new ticket to the technician pool,
// best-effort.
func (w *Workflow) alertTechnicians(ctx context.Context, ticketID, priority, symptom, customerRef string) {
	techs, err := w.directory.ListByRole(ctx, actor.RoleTechnician)
	if err != nil {
		w.logger.Warn().Err(err).Msg("technician roster lookup failed")
		return
	}
	text, ok := w.renderer.Render("triage.tech_alert", map[string]any{
		"ticketId": ticketID,
		"priority": priority,
		"symptom":  symptom,
		"customer": customerRef,
	})
	if !ok {
		return
	}
	refs := make([]string, 0, len(techs))
	for _, t := range techs {
		refs = append(refs, t.Ref)
	}
	w.fanout.NotifyAll(ctx, refs, text)
}
