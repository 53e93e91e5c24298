package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

type startSessionRequest struct {
	SubjectID string            `json:"subjectId"`
	Mode      model.SessionMode `json:"mode"`
	ContentID string            `json:"contentId"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if req.Mode == "" {
		req.Mode = model.ModeNotes
	}
	if !req.Mode.Valid() {
		h.message(w, r, http.StatusBadRequest, "SessionModeInvalid")
		return
	}
	sess, err := h.store.StartSession(model.Session{
		UserID:    userID(r),
		SubjectID: req.SubjectID,
		Mode:      req.Mode,
		ContentID: req.ContentID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.EndSession(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "SessionNotFound")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(userID(r), r.URL.Query().Get("subjectId"),
		queryInt(r, "limit", store.DefaultSessionLimit))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
