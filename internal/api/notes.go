package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

const noteListLimit = 100

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) createNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note := model.NewNote(auth.UserID(r.Context()), req.Title, req.Content)
	if err := store.InsertOne(r.Context(), h.store, store.Notes, note.ID, note.UserID, h.codec.EncryptNote(note)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := store.Find[model.Note](r.Context(), h.store, store.Notes, auth.UserID(r.Context()), noteListLimit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]model.Note, len(notes))
	for i, n := range notes {
		out[i] = h.codec.DecryptNote(n)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getNote(w http.ResponseWriter, r *http.Request) {
	note, err := store.FindOne[model.Note](r.Context(), h.store, store.Notes, chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptNote(*note))
}

// updateNote re-encrypts only the fields present in the request; absent
// fields keep their stored ciphertext, including legacy plaintext values.
func (h *Handler) updateNote(w http.ResponseWriter, r *http.Request) {
	var upd model.NoteUpdate
	if err := decode(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	id := chi.URLParam(r, "id")
	note, err := store.FindOne[model.Note](r.Context(), h.store, store.Notes, id, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}

	if upd.Title != nil {
		note.Title = h.codec.Encrypt(*upd.Title)
	}
	if upd.Content != nil {
		note.Content = h.codec.Encrypt(*upd.Content)
	}
	note.UpdatedAt = time.Now().UTC()

	if _, err := store.UpdateOne(r.Context(), h.store, store.Notes, id, userID, note); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptNote(*note))
}

func (h *Handler) deleteNote(w http.ResponseWriter, r *http.Request) {
	deleted, err := store.DeleteOne(r.Context(), h.store, store.Notes, chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Note deleted"})
}
