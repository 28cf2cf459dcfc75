package api

import (
	"net/http"
	"strconv"

	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

const stateListLimit = 30

func (h *Handler) listStates(w http.ResponseWriter, r *http.Request) {
	limit := stateListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= stateListLimit {
			limit = n
		}
	}

	snapshots, err := store.Find[model.StateSnapshot](r.Context(), h.store, store.States, auth.UserID(r.Context()), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]model.StateSnapshot, len(snapshots))
	for i, s := range snapshots {
		out[i] = h.codec.DecryptSnapshot(s)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) latestState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.LatestState(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if snapshot == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptSnapshot(*snapshot))
}

func (h *Handler) analyzeState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.agent.AnalyzeStateFromNotes(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}
