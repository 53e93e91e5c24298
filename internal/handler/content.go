package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/llm"
	"github.com/uniprep/copilot/internal/llm/prompts"
	"github.com/uniprep/copilot/internal/model"
)

// genContext is everything a generation handler needs besides its own
// parameters.
type genContext struct {
	subject     *model.Subject
	input       prompts.Input
	styleID     string
	contextUsed []string
}

// prepare loads the subject, profile, style and material for a generation
// request. With useStyle false the fixed exam style is used and the user's
// style profiles are left untouched. On failure it has already written the
// response.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, subjectID string, useStyle bool) (*genContext, bool) {
	uid := userID(r)
	if subjectID == "" {
		h.required(w, r, "subjectId")
		return nil, false
	}
	subject, err := h.store.GetSubject(uid, subjectID)
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return nil, false
	}
	user, err := h.store.GetUser(uid)
	if err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return nil, false
	}

	gc := &genContext{subject: subject}
	style := model.ExamStyle()
	if useStyle {
		style, err = h.store.ResolveActiveStyle(uid)
		if err != nil {
			h.fail(w, r, err)
			return nil, false
		}
		gc.styleID = style.ID
	}

	contexts, err := h.store.MaterialContexts(uid, subjectID)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	gc.contextUsed = make([]string, 0, len(contexts))
	for _, c := range contexts {
		gc.contextUsed = append(gc.contextUsed, c.ID)
	}
	gc.input = prompts.Input{
		Profile:  prompts.ProfileFrom(*user, subject.Name),
		Style:    style,
		Material: prompts.MaterialFrom(contexts),
	}
	return gc, true
}

// saveGenerated stores a generated item and answers 201 with it.
func (h *Handler) saveGenerated(w http.ResponseWriter, r *http.Request, gc *genContext, title, topic string, payload model.Payload, fallback bool, meta model.ContentMetadata) {
	generatedAt := time.Now().UTC()
	meta.GeneratedAt = &generatedAt
	meta.Fallback = fallback
	created, err := h.store.CreateContent(model.GeneratedContent{
		UserID:      userID(r),
		SubjectID:   gc.subject.ID,
		Type:        payload.Kind(),
		Title:       title,
		Topic:       topic,
		Content:     payload,
		StyleID:     gc.styleID,
		ContextUsed: gc.contextUsed,
		Metadata:    meta,
	})
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type notesRequest struct {
	SubjectID    string `json:"subjectId"`
	Topic        string `json:"topic"`
	Depth        string `json:"depth"`
	CustomPrompt string `json:"customPrompt"`
}

type reportRequest struct {
	SubjectID    string   `json:"subjectId"`
	Topic        string   `json:"topic"`
	WordCount    int      `json:"wordCount"`
	Sections     []string `json:"sections"`
	CustomPrompt string   `json:"customPrompt"`
}

type pptRequest struct {
	SubjectID        string `json:"subjectId"`
	Topic            string `json:"topic"`
	SlideCount       int    `json:"slideCount"`
	PresentationType string `json:"presentationType"`
	CustomPrompt     string `json:"customPrompt"`
}

func (h *Handler) handleGenerateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		h.required(w, r, "topic")
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, true)
	if !ok {
		return
	}
	if req.Depth == "" {
		req.Depth = llm.DefaultDepth
	}
	res, err := h.llm.GenerateNotes(r.Context(), gc.input, prompts.NotesData{
		Topic:  req.Topic,
		Depth:  req.Depth,
		Custom: req.CustomPrompt,
	})
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	h.saveGenerated(w, r, gc, "Study Notes: "+req.Topic, req.Topic, res.Value, res.Fallback,
		model.ContentMetadata{Depth: req.Depth})
}

func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		h.required(w, r, "topic")
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, true)
	if !ok {
		return
	}
	if req.WordCount <= 0 {
		req.WordCount = llm.DefaultWordCount
	}
	res, err := h.llm.GenerateReport(r.Context(), gc.input, prompts.ReportData{
		Topic:     req.Topic,
		WordCount: req.WordCount,
		Sections:  req.Sections,
		Custom:    req.CustomPrompt,
	})
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	h.saveGenerated(w, r, gc, "Report: "+req.Topic, req.Topic, res.Value, res.Fallback,
		model.ContentMetadata{WordCount: req.WordCount})
}

func (h *Handler) handleGeneratePPT(w http.ResponseWriter, r *http.Request) {
	var req pptRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		h.required(w, r, "topic")
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, true)
	if !ok {
		return
	}
	if req.SlideCount <= 0 {
		req.SlideCount = llm.DefaultSlideCount
	}
	res, err := h.llm.GeneratePPT(r.Context(), gc.input, prompts.PPTData{
		Topic:            req.Topic,
		SlideCount:       req.SlideCount,
		PresentationType: req.PresentationType,
		Custom:           req.CustomPrompt,
	})
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	h.saveGenerated(w, r, gc, "PPT: "+req.Topic, req.Topic, res.Value, res.Fallback,
		model.ContentMetadata{SlideCount: req.SlideCount})
}

func (h *Handler) handleListContent(w http.ResponseWriter, r *http.Request) {
	typ := model.ContentType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		h.message(w, r, http.StatusBadRequest, "ContentTypeInvalid")
		return
	}
	uid, subjectID := userID(r), chi.URLParam(r, "id")
	if _, err := h.store.GetSubject(uid, subjectID); err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	items, err := h.store.ListContent(uid, subjectID, typ)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetContent(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "ContentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type contentUpdate struct {
	Title   *string         `json:"title"`
	Topic   *string         `json:"topic"`
	Content json.RawMessage `json:"content"`
}

// handleUpdateContent edits title, topic or payload. A new payload must
// match the stored content type.
func (h *Handler) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var req contentUpdate
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	c, err := h.store.GetContent(userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "ContentNotFound")
		return
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Topic != nil {
		c.Topic = *req.Topic
	}
	if len(req.Content) > 0 && string(req.Content) != "null" {
		payload, err := model.DecodePayload(c.Type, req.Content)
		if err != nil {
			h.badRequest(w, r)
			return
		}
		c.Content = payload
	}
	updated, err := h.store.UpdateContent(*c)
	if err != nil {
		h.storeError(w, r, err, "ContentNotFound")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteContent(userID(r), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, r, err, "ContentNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "ContentDeleted")
}
