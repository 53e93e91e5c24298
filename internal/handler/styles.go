package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/model"
)

// styleRequest carries the editable fields of a style profile. Nil fields
// keep their current value on update.
type styleRequest struct {
	Name              *string       `json:"name"`
	IsPublic          *bool         `json:"isPublic"`
	Sections          *[]string     `json:"sections"`
	Tone              *model.Tone   `json:"tone"`
	MaxWordCount      *int          `json:"maxWordCount"`
	ApproximateLength *model.Length `json:"approximateLength"`
	Instructions      *string       `json:"instructions"`
}

func (req styleRequest) apply(st *model.AnswerStyle) {
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsPublic != nil {
		st.IsPublic = *req.IsPublic
	}
	if req.Sections != nil {
		st.Sections = *req.Sections
	}
	if req.Tone != nil {
		st.Tone = *req.Tone
	}
	if req.MaxWordCount != nil {
		st.MaxWordCount = *req.MaxWordCount
	}
	if req.ApproximateLength != nil {
		st.ApproximateLength = *req.ApproximateLength
	}
	if req.Instructions != nil {
		st.Instructions = *req.Instructions
	}
}

// validStyle writes a 400 and returns false when st cannot be stored.
func (h *Handler) validStyle(w http.ResponseWriter, r *http.Request, st model.AnswerStyle) bool {
	if st.Name == "" {
		h.required(w, r, "name")
		return false
	}
	if !st.Tone.Valid() {
		h.message(w, r, http.StatusBadRequest, "ToneInvalid")
		return false
	}
	return true
}

func (h *Handler) handleListStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := h.store.ListStyles(userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, styles)
}

func (h *Handler) handleStylePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := model.StylePresets()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

func (h *Handler) handleCreateStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	st := model.AnswerStyle{UserID: userID(r), Tone: model.ToneFormalExam, ApproximateLength: model.LengthMedium}
	req.apply(&st)
	if !h.validStyle(w, r, st) {
		return
	}
	created, err := h.store.CreateStyle(st)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	st, err := h.store.GetStyle(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "StyleNotFound")
		return
	}
	req.apply(st)
	if !h.validStyle(w, r, *st) {
		return
	}
	updated, err := h.store.UpdateStyle(*st)
	if err != nil {
		h.storeError(w, r, err, "StyleNotFound")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteStyle(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteStyle(userID(r), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err, "StyleNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "StyleDeleted")
}

func (h *Handler) handleActivateStyle(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ActivateStyle(userID(r), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err, "StyleNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "StyleActivated")
}
