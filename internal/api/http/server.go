package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/commands"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	router    *commands.Router
	lifecycle *lifecycle.Service
	changelog device.ChangeLog
	logger    zerolog.Logger
}

func NewServer(router *commands.Router, lifecycleSvc *lifecycle.Service, changelog device.ChangeLog, logger zerolog.Logger) *Server {
	return &Server{
		router:    router,
		lifecycle: lifecycleSvc,
		changelog: changelog,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", s.postMessage)
		r.Get("/tickets", s.listTickets)
		r.Get("/tickets/{ticketId}", s.getTicket)
		r.Get("/devices/{deviceRef}/changelog", s.getChangeLog)
	})

	return r
}

type inboundMessageRequest struct {
	ActorID string `json:"actor_id"`
	Text    string `json:"text"`
}

type outboundMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req inboundMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.ActorID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "actor_id is required")
		return
	}

	replies := s.router.Handle(r.Context(), req.ActorID, req.Text)
	out := make([]outboundMessage, 0, len(replies))
	for _, m := range replies {
		to := m.To
		if to == "" {
			to = req.ActorID
		}
		out = append(out, outboundMessage{To: to, Text: m.Text})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ticketId")
	t, err := s.lifecycle.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found")
			return
		}
		s.logger.Error().Err(err).Str("ticket_id", id).Msg("get ticket failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{Limit: parseLimit(r, 100, 200)}
	if v := r.URL.Query().Get("status"); v != "" {
		st := ticket.Status(v)
		filter.Status = &st
	}
	if v := r.URL.Query().Get("customer"); v != "" {
		filter.CustomerRef = &v
	}
	if v := r.URL.Query().Get("technician"); v != "" {
		filter.TechnicianRef = &v
	}
	tickets, err := s.lifecycle.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list tickets failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

func (s *Server) getChangeLog(w http.ResponseWriter, r *http.Request) {
	deviceRef := chi.URLParam(r, "deviceRef")
	entries, err := s.changelog.List(r.Context(), deviceRef, parseLimit(r, 100, 500))
	if err != nil {
		s.logger.Error().Err(err).Str("device_ref", deviceRef).Msg("list change log failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"device_ref": deviceRef, "entries": entries})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
