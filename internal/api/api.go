// Package api is the HTTP surface. Handlers decode requests, call the core
// services and encode plain structured results; no business rules live here.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nousapp/nous/internal/agent"
	"github.com/nousapp/nous/internal/ai"
	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/crypto"
	"github.com/nousapp/nous/internal/logger"
	"github.com/nousapp/nous/internal/store"
)

// Handler bundles the services the routes need.
type Handler struct {
	store *store.Store
	agent *agent.Agent
	ai    *ai.Service
	codec *crypto.Codec
	auth  *auth.Service
}

// New creates the handler.
func New(st *store.Store, ag *agent.Agent, aiSvc *ai.Service, codec *crypto.Codec, authSvc *auth.Service) *Handler {
	return &Handler{store: st, agent: ag, ai: aiSvc, codec: codec, auth: authSvc}
}

// Router assembles all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)

			r.Get("/auth/me", h.me)
			r.Post("/auth/logout", h.logout)

			r.Route("/notes", func(r chi.Router) {
				r.Post("/", h.createNote)
				r.Get("/", h.listNotes)
				r.Get("/{id}", h.getNote)
				r.Put("/{id}", h.updateNote)
				r.Delete("/{id}", h.deleteNote)
			})

			r.Route("/checklists", func(r chi.Router) {
				r.Post("/templates", h.createTemplate)
				r.Get("/templates", h.listTemplates)
				r.Delete("/templates/{id}", h.deleteTemplate)
				r.Post("/", h.upsertChecklist)
				r.Get("/{date}", h.getChecklist)
				r.Put("/{date}/items/{itemID}", h.toggleChecklistItem)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Post("/", h.chat)
				r.Post("/suggest-tasks", h.suggestTasks)
				r.Post("/sessions", h.createSession)
				r.Get("/sessions", h.listSessions)
				r.Get("/sessions/{id}", h.getSession)
				r.Put("/sessions/{id}/title", h.updateSessionTitle)
				r.Delete("/sessions/{id}", h.deleteSession)
				r.Post("/sessions/{id}/summary", h.createSessionSummary)
			})

			r.Route("/state", func(r chi.Router) {
				r.Get("/", h.listStates)
				r.Get("/latest", h.latestState)
				r.Post("/analyze", h.analyzeState)
			})
		})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respondServiceError maps core sentinel errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "AI service not configured")
	case errors.Is(err, agent.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, agent.ErrNotEnoughTurns):
		respondError(w, http.StatusBadRequest, "Not enough messages for summary")
	case errors.Is(err, agent.ErrNoNotes):
		respondError(w, http.StatusBadRequest, "No notes found for analysis")
	default:
		logger.L.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
