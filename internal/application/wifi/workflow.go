package wifi

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

// Workflow steps for the WiFi name/password change family. Both changes
// share one FSM: select_mode → (select_target | ask_value) → confirm.
const (
	StepSelectMode   session.Step = "wifi_select_mode"
	StepSelectTarget session.Step = "wifi_select_target"
	StepAskValue     session.Step = "wifi_ask_value"
	StepConfirm      session.Step = "wifi_confirm"
)

const changeChannel = "chat"

// Workflow drives self-service SSID name and password changes against the
// device gateway.
type Workflow struct {
	gateway   device.Gateway
	changelog device.ChangeLog
	renderer  *render.Renderer
	fanout    *notify.Fanout
	// directExecute skips the confirmation step and applies immediately
	// after the value is collected.
	directExecute bool
	logger        zerolog.Logger
}

func NewWorkflow(gateway device.Gateway, changelog device.ChangeLog, renderer *render.Renderer, fanout *notify.Fanout, directExecute bool, logger zerolog.Logger) *Workflow {
	return &Workflow{
		gateway:       gateway,
		changelog:     changelog,
		renderer:      renderer,
		fanout:        fanout,
		directExecute: directExecute,
		logger:        logger.With().Str("workflow", "wifi").Logger(),
	}
}

// RegisterHandlers binds the workflow steps to the dispatch engine.
func (w *Workflow) RegisterHandlers(e *dispatch.Engine) {
	e.Register(StepSelectMode, w.handleSelectMode)
	e.Register(StepSelectTarget, w.handleSelectTarget)
	e.Register(StepAskValue, w.handleAskValue)
	e.Register(StepConfirm, w.handleConfirm)
}

// Start begins a change workflow for the actor. With a single wireless
// index there is nothing to choose, so the mode question is skipped.
func (w *Workflow) Start(act *actor.Actor, kind session.ChangeKind) (*session.Session, []dispatch.Message) {
	indices := append([]int(nil), act.SSIDIndices...)
	sort.Ints(indices)
	payload := &session.WifiChange{
		Kind:        kind,
		DeviceRef:   act.DeviceRef,
		SSIDIndices: indices,
	}

	if len(indices) == 1 {
		payload.Mode = session.ApplySingle
		payload.TargetIndex = indices[0]
		sess := session.New(act.Ref, StepAskValue, payload)
		return sess, w.askValueMessages(payload)
	}

	sess := session.New(act.Ref, StepSelectMode, payload)
	text, _ := w.renderer.Render("wifi.select_mode", nil)
	return sess, []dispatch.Message{{Text: text}}
}

func (w *Workflow) handleSelectMode(_ context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.WifiChange)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	switch strings.TrimSpace(input) {
	case "1":
		p.Mode = session.ApplySingle
		text, _ := w.renderer.Render("wifi.select_target", map[string]any{"options": targetOptions(p.SSIDIndices)})
		return dispatch.Result{Next: StepSelectTarget, Messages: []dispatch.Message{{Text: text}}}, nil
	case "2":
		p.Mode = session.ApplyAll
		return dispatch.Result{Next: StepAskValue, Messages: w.askValueMessages(p)}, nil
	default:
		text, _ := w.renderer.Render("wifi.invalid_option", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
}

func (w *Workflow) handleSelectTarget(_ context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.WifiChange)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		text, _ := w.renderer.Render("wifi.invalid_target", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	allowed := false
	for _, i := range p.SSIDIndices {
		if i == idx {
			allowed = true
			break
		}
	}
	if !allowed {
		// A well-formed index outside the actor's set is an authorization
		// failure, not a typo.
		text, _ := w.renderer.Render("error.unauthorized", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	p.TargetIndex = idx
	return dispatch.Result{Next: StepAskValue, Messages: w.askValueMessages(p)}, nil
}

func (w *Workflow) handleAskValue(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.WifiChange)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	value := strings.TrimSpace(input)
	if msg, ok := validateValue(p.Kind, value); !ok {
		text, _ := w.renderer.Render(msg, nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
	p.NewValue = value

	if w.directExecute {
		return w.submit(ctx, s.ActorID, p)
	}

	text, _ := w.renderer.Render("wifi.confirm", map[string]any{
		"what":   kindLabel(p.Kind),
		"value":  value,
		"target": targetLabel(p),
	})
	return dispatch.Result{Next: StepConfirm, Messages: []dispatch.Message{{Text: text}}}, nil
}

func (w *Workflow) handleConfirm(ctx context.Context, s *session.Session, input string) (dispatch.Result, error) {
	p, ok := s.Payload.(*session.WifiChange)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("unexpected payload %T at step %s", s.Payload, s.Step)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "ya":
		return w.submit(ctx, s.ActorID, p)
	case "no", "n", "tidak":
		text, _ := w.renderer.Render("wifi.declined", nil)
		return dispatch.Result{Done: true, Messages: []dispatch.Message{{Text: text}}}, nil
	default:
		text, _ := w.renderer.Render("wifi.confirm_prompt", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}
}

// submit sends the whole change as one gateway batch. Accepted only means
// queued, which the applied message spells out to the human.
func (w *Workflow) submit(ctx context.Context, actorID string, p *session.WifiChange) (dispatch.Result, error) {
	if p.Submitted {
		// A retried confirmation must never re-trigger a batch the gateway
		// already accepted.
		text, _ := w.renderer.Render("wifi.already_submitted", nil)
		return dispatch.Result{Done: true, Messages: []dispatch.Message{{Text: text}}}, nil
	}

	if text, ok := w.renderer.Render("wifi.applying", nil); ok {
		w.fanout.Notify(ctx, actorID, text)
	}

	indices := p.SSIDIndices
	if p.Mode == session.ApplySingle {
		indices = []int{p.TargetIndex}
	}
	params := make([]device.Parameter, 0, len(indices))
	for _, idx := range indices {
		params = append(params, device.Parameter{Path: parameterPath(p.Kind, idx), Value: p.NewValue})
	}

	oldValues := w.lookupOldValues(ctx, p.DeviceRef, params)

	res, err := w.gateway.ApplyParameters(ctx, p.DeviceRef, params)
	if err != nil || res == nil || !res.Accepted {
		// Never leak backend detail into the chat channel.
		w.logger.Error().Err(err).Str("device", p.DeviceRef).Int("params", len(params)).Msg("parameter batch rejected")
		text, _ := w.renderer.Render("error.generic", nil)
		return dispatch.Result{Messages: []dispatch.Message{{Text: text}}}, nil
	}

	p.Submitted = true
	for i, param := range params {
		entry := device.NewChangeEntry(p.DeviceRef, actorID, param.Path, oldValues[i], param.Value, changeChannel)
		if err := w.changelog.Append(ctx, entry); err != nil {
			w.logger.Warn().Err(err).Str("path", param.Path).Msg("change log append failed")
		}
	}

	w.logger.Info().Str("device", p.DeviceRef).Str("task", res.TaskRef).Int("params", len(params)).Msg("parameter batch accepted")
	text, _ := w.renderer.Render("wifi.applied", nil)
	return dispatch.Result{Done: true, Messages: []dispatch.Message{{Text: text}}}, nil
}

func (w *Workflow) lookupOldValues(ctx context.Context, deviceRef string, params []device.Parameter) []string {
	old := make([]string, len(params))
	snap, err := w.gateway.QueryDeviceSnapshot(ctx, deviceRef)
	if err != nil || snap == nil {
		w.logger.Debug().Err(err).Str("device", deviceRef).Msg("snapshot unavailable, change log without old values")
		return old
	}
	for i, p := range params {
		old[i] = snap.Parameters[p.Path]
	}
	return old
}

func (w *Workflow) askValueMessages(p *session.WifiChange) []dispatch.Message {
	key := "wifi.ask_name"
	if p.Kind == session.ChangePassword {
		key = "wifi.ask_password"
	}
	text, _ := w.renderer.Render(key, nil)
	return []dispatch.Message{{Text: text}}
}

func validateValue(kind session.ChangeKind, value string) (string, bool) {
	switch kind {
	case session.ChangePassword:
		if len(value) < 8 || len(value) > 63 {
			return "wifi.invalid_password", false
		}
	default:
		if value == "" || utf8.RuneCountInString(value) > 32 || !utf8.ValidString(value) {
			return "wifi.invalid_name", false
		}
		for _, r := range value {
			if r != ' ' && !unicode.IsGraphic(r) {
				return "wifi.invalid_name", false
			}
		}
	}
	return "", true
}

func parameterPath(kind session.ChangeKind, index int) string {
	if kind == session.ChangePassword {
		return device.SSIDPassphrasePath(index)
	}
	return device.SSIDNamePath(index)
}

func kindLabel(kind session.ChangeKind) string {
	if kind == session.ChangePassword {
		return "WiFi password"
	}
	return "WiFi name"
}

func targetLabel(p *session.WifiChange) string {
	if p.Mode == session.ApplyAll {
		return "all networks"
	}
	return fmt.Sprintf("network %d", p.TargetIndex)
}

func targetOptions(indices []int) string {
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. Network %d", idx, idx)
	}
	return sb.String()
}
