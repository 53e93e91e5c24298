package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/model"
)

type subjectRequest struct {
	Name *string `json:"name"`
	Code *string `json:"code"`
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects(userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubject(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		h.required(w, r, "name")
		return
	}
	sub := model.Subject{UserID: userID(r), Name: strings.TrimSpace(*req.Name)}
	if req.Code != nil {
		sub.Code = strings.TrimSpace(*req.Code)
	}
	created, err := h.store.CreateSubject(sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	uid, id := userID(r), chi.URLParam(r, "id")
	sub, err := h.store.GetSubject(uid, id)
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	if req.Name != nil {
		sub.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		sub.Code = strings.TrimSpace(*req.Code)
	}
	if sub.Name == "" {
		h.required(w, r, "name")
		return
	}
	updated, err := h.store.UpdateSubject(uid, id, sub.Name, sub.Code)
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSubject(userID(r), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "SubjectDeleted")
}
