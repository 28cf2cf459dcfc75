package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nousapp/nous/internal/agent"
	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/history"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

const sessionListLimit = 50

type chatRequest struct {
	Message        string            `json:"message"`
	SessionID      string            `json:"session_id"`
	History        []history.Message `json:"history"`
	HistorySummary string            `json:"history_summary"`
	UpdateState    bool              `json:"update_state"`
}

type sessionRequest struct {
	Title string `json:"title"`
}

type suggestTasksRequest struct {
	Message string            `json:"message"`
	History []history.Message `json:"history"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.agent.ProcessTurn(r.Context(), agent.TurnRequest{
		UserID:         auth.UserID(r.Context()),
		SessionID:      req.SessionID,
		Message:        req.Message,
		History:        req.History,
		HistorySummary: req.HistorySummary,
		UpdateState:    req.UpdateState,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) suggestTasks(w http.ResponseWriter, r *http.Request) {
	var req suggestTasksRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestion, err := h.ai.SuggestTasks(r.Context(), req.Message, req.History)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		req.Title = "New dialog"
	}

	session := model.NewChatSession(auth.UserID(r.Context()), req.Title)
	if err := store.InsertOne(r.Context(), h.store, store.ChatSessions, session.ID, session.UserID, h.codec.EncryptSession(session)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := sessionListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= sessionListLimit {
			limit = n
		}
	}

	sessions, err := store.Find[model.ChatSession](r.Context(), h.store, store.ChatSessions, auth.UserID(r.Context()), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]model.ChatSession, len(sessions))
	for i, s := range sessions {
		out[i] = h.codec.DecryptSession(s)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := store.FindOne[model.ChatSession](r.Context(), h.store, store.ChatSessions, chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptSession(*session))
}

// updateSessionTitle re-encrypts only the title; stored turns keep their
// ciphertext as written.
func (h *Handler) updateSessionTitle(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")
	session, err := store.FindOne[model.ChatSession](r.Context(), h.store, store.ChatSessions, id, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.Title = h.codec.Encrypt(req.Title)
	session.UpdatedAt = time.Now().UTC()
	if _, err := store.UpdateOne(r.Context(), h.store, store.ChatSessions, id, userID, session); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptSession(*session))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	deleted, err := store.DeleteOne(r.Context(), h.store, store.ChatSessions, chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

func (h *Handler) createSessionSummary(w http.ResponseWriter, r *http.Request) {
	note, err := h.agent.CreateSummaryNote(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}
