package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nousapp/nous/internal/auth"
	"github.com/nousapp/nous/internal/model"
	"github.com/nousapp/nous/internal/store"
)

const templateListLimit = 50

type templateRequest struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type checklistItemRequest struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type checklistRequest struct {
	Date       string                 `json:"date"`
	Items      []checklistItemRequest `json:"items"`
	TemplateID string                 `json:"template_id"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	tpl := model.NewChecklistTemplate(auth.UserID(r.Context()), req.Name, req.Items)
	if err := store.InsertOne(r.Context(), h.store, store.Templates, tpl.ID, tpl.UserID, h.codec.EncryptTemplate(tpl)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tpl)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := store.Find[model.ChecklistTemplate](r.Context(), h.store, store.Templates, auth.UserID(r.Context()), templateListLimit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]model.ChecklistTemplate, len(tpls))
	for i, t := range tpls {
		out[i] = h.codec.DecryptTemplate(t)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	deleted, err := store.DeleteOne(r.Context(), h.store, store.Templates, chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Template deleted"})
}

// upsertChecklist replaces the checklist for a day, creating it on first
// write. Items without an id get a fresh one.
func (h *Handler) upsertChecklist(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	items := make([]model.ChecklistItem, len(req.Items))
	for i, it := range req.Items {
		item := model.NewChecklistItem(it.Text)
		if it.ID != "" {
			item.ID = it.ID
		}
		item.Completed = it.Completed
		items[i] = item
	}

	userID := auth.UserID(r.Context())
	existing, err := h.store.FindChecklistByDay(r.Context(), userID, req.Date)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var list model.DailyChecklist
	if existing == nil {
		list = model.NewDailyChecklist(userID, req.Date, items, req.TemplateID)
		if err := h.store.InsertChecklist(r.Context(), h.codec.EncryptChecklist(list)); err != nil {
			respondServiceError(w, err)
			return
		}
	} else {
		list = *existing
		list.Items = items
		if req.TemplateID != "" {
			list.TemplateID = req.TemplateID
		}
		encrypted := h.codec.EncryptChecklist(list)
		if _, err := store.UpdateOne(r.Context(), h.store, store.Checklists, list.ID, userID, encrypted); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) getChecklist(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.FindChecklistByDay(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptChecklist(*list))
}

// toggleChecklistItem flips one item's completed flag. The stored item texts
// stay as written, so ciphertext is never re-derived here.
func (h *Handler) toggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	list, err := h.store.FindChecklistByDay(r.Context(), userID, chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		respondError(w, http.StatusNotFound, "Checklist not found")
		return
	}

	itemID := chi.URLParam(r, "itemID")
	found := false
	for i := range list.Items {
		if list.Items[i].ID == itemID {
			list.Items[i].Completed = !list.Items[i].Completed
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "Item not found")
		return
	}

	if _, err := store.UpdateOne(r.Context(), h.store, store.Checklists, list.ID, userID, list); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.codec.DecryptChecklist(*list))
}
