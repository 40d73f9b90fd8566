package commands

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/fieldwork"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/triage"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/wifi"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

// Router is the single text entry point: inbound chat goes to the actor's
// in-flight workflow when one exists, otherwise to a command that may start
// one.
type Router struct {
	directory actor.Directory
	engine    *dispatch.Engine
	wifi      *wifi.Workflow
	triage    *triage.Workflow
	fieldwork *fieldwork.Workflow
	renderer  *render.Renderer
	logger    zerolog.Logger
}

func NewRouter(
	directory actor.Directory,
	engine *dispatch.Engine,
	wifiFlow *wifi.Workflow,
	triageFlow *triage.Workflow,
	fieldworkFlow *fieldwork.Workflow,
	renderer *render.Renderer,
	logger zerolog.Logger,
) *Router {
	return &Router{
		directory: directory,
		engine:    engine,
		wifi:      wifiFlow,
		triage:    triageFlow,
		fieldwork: fieldworkFlow,
		renderer:  renderer,
		logger:    logger.With().Str("component", "command_router").Logger(),
	}
}

// Handle processes one inbound message from an actor.
func (r *Router) Handle(ctx context.Context, actorRef, text string) []dispatch.Message {
	act, err := r.directory.Lookup(ctx, actorRef)
	if err != nil {
		r.logger.Warn().Err(err).Str("actor", actorRef).Msg("message from unknown actor")
		return r.message("error.unknown_actor", nil)
	}

	if r.engine.HasSession(actorRef) {
		msgs, err := r.engine.Dispatch(ctx, actorRef, text)
		if err == nil {
			return msgs
		}
		if err != dispatch.ErrNoSession {
			r.logger.Error().Err(err).Str("actor", actorRef).Msg("dispatch failed")
			return r.message("error.generic", nil)
		}
		// The session expired between Has and Dispatch; fall through to the
		// command path.
	}

	return r.handleCommand(ctx, act, text)
}

func (r *Router) handleCommand(ctx context.Context, act *actor.Actor, text string) []dispatch.Message {
	if dispatch.IsCancelPhrase(text) {
		// Bare cancel with nothing in flight.
		return r.message("session.cancelled", nil)
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return r.message("help.menu", nil)
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	// "<ticket> photo:<ref>" puts the verb second.
	if len(args) > 0 {
		if ref, ok := fieldwork.ParsePhoto(args[0]); ok {
			return r.requireTechnician(act, func() []dispatch.Message {
				return r.fieldwork.SubmitPhoto(ctx, act, ref, strings.ToUpper(verb))
			})
		}
	}
	if ref, ok := fieldwork.ParsePhoto(verb); ok {
		return r.requireTechnician(act, func() []dispatch.Message {
			return r.fieldwork.SubmitPhoto(ctx, act, ref, "")
		})
	}

	switch verb {
	case "menu", "help", "hi", "hello", "halo":
		return r.message("help.menu", nil)

	case "1", "wifiname":
		return r.startWifi(act, session.ChangeName)
	case "2", "wifipassword", "wifipass":
		return r.startWifi(act, session.ChangePassword)
	case "wifi":
		if len(args) > 0 && strings.EqualFold(args[0], "password") {
			return r.startWifi(act, session.ChangePassword)
		}
		return r.startWifi(act, session.ChangeName)

	case "3", "report", "lapor":
		return r.startTriage(act)

	case "assign":
		return r.requireTechnician(act, func() []dispatch.Message {
			if len(args) < 1 {
				return r.message("help.menu", nil)
			}
			return r.fieldwork.Assign(ctx, act, strings.ToUpper(args[0]))
		})

	case "verify":
		return r.requireTechnician(act, func() []dispatch.Message {
			if len(args) < 1 {
				return r.message("help.menu", nil)
			}
			code := ""
			if len(args) > 1 {
				code = args[1]
			}
			sess, msgs := r.fieldwork.StartVerify(ctx, act, strings.ToUpper(args[0]), code)
			if sess != nil {
				r.engine.Start(act.Ref, sess)
			}
			return msgs
		})

	case "resolve":
		return r.requireTechnician(act, func() []dispatch.Message {
			if len(args) < 1 {
				return r.message("help.menu", nil)
			}
			sess, msgs := r.fieldwork.StartResolve(ctx, act, strings.ToUpper(args[0]))
			if sess != nil {
				r.engine.Start(act.Ref, sess)
			}
			return msgs
		})

	case "confirm":
		if len(args) < 1 {
			return r.message("help.menu", nil)
		}
		code := ""
		if len(args) > 1 {
			code = args[1]
		}
		sess, msgs := r.fieldwork.StartConfirm(ctx, act, strings.ToUpper(args[0]), code)
		if sess != nil {
			r.engine.Start(act.Ref, sess)
		}
		return msgs

	case "cancel", "batal":
		// With a ticket argument this is ticket cancellation, not the
		// universal session cancel (that case never reaches here).
		if len(args) < 1 {
			return r.message("help.menu", nil)
		}
		reason := strings.Join(args[1:], " ")
		return r.fieldwork.CancelTicket(ctx, act, strings.ToUpper(args[0]), reason)

	default:
		return r.message("help.menu", nil)
	}
}

func (r *Router) startWifi(act *actor.Actor, kind session.ChangeKind) []dispatch.Message {
	if act.Role != actor.RoleCustomer {
		return r.message("error.unauthorized", nil)
	}
	if act.DeviceRef == "" || len(act.SSIDIndices) == 0 {
		return r.message("error.generic", nil)
	}
	sess, msgs := r.wifi.Start(act, kind)
	r.engine.Start(act.Ref, sess)
	return msgs
}

func (r *Router) startTriage(act *actor.Actor) []dispatch.Message {
	if act.Role != actor.RoleCustomer {
		return r.message("error.unauthorized", nil)
	}
	sess, msgs := r.triage.Start(act)
	r.engine.Start(act.Ref, sess)
	return msgs
}

func (r *Router) requireTechnician(act *actor.Actor, fn func() []dispatch.Message) []dispatch.Message {
	if act.Role != actor.RoleTechnician && act.Role != actor.RoleAdmin {
		return r.message("error.unauthorized", nil)
	}
	return fn()
}

func (r *Router) message(key string, vars map[string]any) []dispatch.Message {
	text, ok := r.renderer.Render(key, vars)
	if !ok {
		return nil
	}
	return []dispatch.Message{{Text: text}}
}
