package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/extract"
	"github.com/uniprep/copilot/internal/i18n"
	"github.com/uniprep/copilot/internal/model"
)

// keywordList accepts either a JSON array or a comma separated string.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = splitKeywords(strings.Join(list, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = splitKeywords(s)
	return nil
}

func splitKeywords(s string) []string {
	out := []string{}
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

type contextRequest struct {
	SubjectID string            `json:"subjectId"`
	Type      model.ContextType `json:"type"`
	Title     string            `json:"title"`
	Content   *string           `json:"content"`
	Topic     *string           `json:"topic"`
	Keywords  *keywordList      `json:"keywords"`
	Metadata  *struct {
		Topic    *string      `json:"topic"`
		Keywords *keywordList `json:"keywords"`
	} `json:"metadata"`
}

func (req *contextRequest) topic() *string {
	if req.Topic == nil && req.Metadata != nil {
		return req.Metadata.Topic
	}
	return req.Topic
}

func (req *contextRequest) keywords() *keywordList {
	if req.Keywords == nil && req.Metadata != nil {
		return req.Metadata.Keywords
	}
	return req.Keywords
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// handleCreateContext stores reference material sent as JSON or as a
// multipart form with an optional file whose text becomes the content.
func (h *Handler) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if isMultipart(r) {
		if !h.readContextForm(w, r, &req) {
			return
		}
	} else if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}

	switch {
	case req.SubjectID == "":
		h.required(w, r, "subjectId")
		return
	case !req.Type.Valid():
		h.message(w, r, http.StatusBadRequest, "ContextTypeInvalid")
		return
	case strings.TrimSpace(req.Title) == "":
		h.required(w, r, "title")
		return
	case req.Content == nil || strings.TrimSpace(*req.Content) == "":
		h.required(w, r, "content")
		return
	}

	uploaded := time.Now().UTC()
	c := model.Context{
		UserID:    userID(r),
		SubjectID: req.SubjectID,
		Type:      req.Type,
		Title:     strings.TrimSpace(req.Title),
		Content:   *req.Content,
		Metadata:  model.ContextMetadata{UploadDate: &uploaded},
	}
	if t := req.topic(); t != nil {
		c.Metadata.Topic = *t
	}
	if kw := req.keywords(); kw != nil {
		c.Metadata.Keywords = *kw
	}
	if url, ok := extract.FileURL(c.Content); ok {
		c.FileURL = url
		c.Content = url
	}

	created, err := h.store.CreateContext(c)
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// readContextForm fills req from a multipart form. An uploaded file
// replaces the content field with its extracted text.
func (h *Handler) readContextForm(w http.ResponseWriter, r *http.Request, req *contextRequest) bool {
	limit := h.config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadTooLarge(w, r)
			return false
		}
		h.badRequest(w, r)
		return false
	}

	req.SubjectID = r.FormValue("subjectId")
	req.Type = model.ContextType(r.FormValue("type"))
	req.Title = r.FormValue("title")
	if v, ok := r.MultipartForm.Value["content"]; ok && len(v) > 0 {
		req.Content = &v[0]
	}
	if v, ok := r.MultipartForm.Value["topic"]; ok && len(v) > 0 {
		req.Topic = &v[0]
	}
	if v, ok := r.MultipartForm.Value["keywords"]; ok && len(v) > 0 {
		kw := keywordList(splitKeywords(v[0]))
		req.Keywords = &kw
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return true
	}
	if err != nil {
		h.badRequest(w, r)
		return false
	}
	defer file.Close()

	if !extract.Allowed(h.config.UploadPatterns, header.Filename) {
		writeJSON(w, http.StatusBadRequest, messageBody{
			Message: i18n.Td(r.Context(), "UploadNotAllowed", map[string]any{"Name": header.Filename}),
		})
		return false
	}
	if header.Size > limit {
		h.uploadTooLarge(w, r)
		return false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, err)
		return false
	}
	text, err := extract.Text(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		slog.Warn("context upload unreadable", "file", header.Filename, "error", err)
		h.message(w, r, http.StatusBadRequest, "UploadUnreadable")
		return false
	}
	slog.Debug("extracted context upload", "file", header.Filename, "size", humanize.Bytes(uint64(len(data))))
	req.Content = &text
	if strings.TrimSpace(req.Title) == "" {
		req.Title = header.Filename
	}
	return true
}

func (h *Handler) uploadTooLarge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, messageBody{
		Message: i18n.Td(r.Context(), "UploadTooLarge", map[string]any{"Limit": humanize.Bytes(uint64(h.config.MaxUploadBytes))}),
	})
}

func (h *Handler) handleListContexts(w http.ResponseWriter, r *http.Request) {
	typ := model.ContextType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		h.message(w, r, http.StatusBadRequest, "ContextTypeInvalid")
		return
	}
	uid, subjectID := userID(r), chi.URLParam(r, "id")
	if _, err := h.store.GetSubject(uid, subjectID); err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	contexts, err := h.store.ListContexts(uid, subjectID, typ)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contexts)
}

func (h *Handler) handleSearchContexts(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		h.message(w, r, http.StatusBadRequest, "KeywordRequired")
		return
	}
	uid, subjectID := userID(r), chi.URLParam(r, "id")
	if _, err := h.store.GetSubject(uid, subjectID); err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	contexts, err := h.store.SearchContexts(uid, subjectID, keyword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contexts)
}

func (h *Handler) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	c, err := h.store.GetContext(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "ContextNotFound")
		return
	}
	if req.Type != "" {
		if !req.Type.Valid() {
			h.message(w, r, http.StatusBadRequest, "ContextTypeInvalid")
			return
		}
		c.Type = req.Type
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		c.Title = t
	}
	if req.Content != nil {
		c.Content = *req.Content
		c.FileURL = ""
		if url, ok := extract.FileURL(c.Content); ok {
			c.FileURL = url
			c.Content = url
		}
	}
	if t := req.topic(); t != nil {
		c.Metadata.Topic = *t
	}
	if kw := req.keywords(); kw != nil {
		c.Metadata.Keywords = *kw
	}

	updated, err := h.store.UpdateContext(*c)
	if err != nil {
		h.storeError(w, r, err, "ContextNotFound")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteContext(userID(r), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err, "ContextNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "ContextDeleted")
}
