package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/llm"
	"github.com/uniprep/copilot/internal/llm/prompts"
	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

type blueprintRequest struct {
	SubjectID string `json:"subjectId"`
}

type plannerRequest struct {
	SubjectID   string  `json:"subjectId"`
	ExamDate    string  `json:"examDate"`
	HoursPerDay float64 `json:"hoursPerDay"`
}

type rapidSheetsRequest struct {
	SubjectID string      `json:"subjectId"`
	Topics    keywordList `json:"topics"`
}

type mockPaperRequest struct {
	SubjectID  string `json:"subjectId"`
	ShortCount int    `json:"shortCount"`
	LongCount  int    `json:"longCount"`
}

// parseExamDate accepts a calendar date or an RFC 3339 timestamp.
func parseExamDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) handleBlueprint(w http.ResponseWriter, r *http.Request) {
	var req blueprintRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, false)
	if !ok {
		return
	}
	res, err := h.llm.GenerateBlueprint(r.Context(), gc.input)
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	plan, err := h.store.SaveBlueprint(userID(r), gc.subject.ID, res.Value)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handlePlanner builds a revision plan from the subject's saved blueprint.
func (h *Handler) handlePlanner(w http.ResponseWriter, r *http.Request) {
	var req plannerRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if strings.TrimSpace(req.ExamDate) == "" {
		h.required(w, r, "examDate")
		return
	}
	examDate, err := parseExamDate(req.ExamDate)
	if err != nil {
		h.message(w, r, http.StatusBadRequest, "ExamDateInvalid")
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, false)
	if !ok {
		return
	}
	uid := userID(r)
	ready, err := h.store.HasBlueprint(uid, gc.subject.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ready {
		h.message(w, r, http.StatusBadRequest, "BlueprintRequired")
		return
	}
	plan, err := h.store.GetExamPlan(uid, gc.subject.ID)
	if err != nil {
		h.storeError(w, r, err, "ExamPlanNotFound")
		return
	}

	res, err := h.llm.GenerateRevisionPlan(r.Context(), gc.input, examDate, req.HoursPerDay, *plan.Blueprint)
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	plan, err = h.store.SaveRevisionPlan(uid, gc.subject.ID, examDate, res.Value)
	if err != nil {
		h.storeError(w, r, err, "ExamPlanNotFound")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleRapidSheets(w http.ResponseWriter, r *http.Request) {
	var req rapidSheetsRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, true)
	if !ok {
		return
	}
	topics := []string(req.Topics)
	if topics == nil {
		topics = []string{}
	}
	res, err := h.llm.GenerateRapidSheets(r.Context(), gc.input, topics)
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	topic := "All Topics"
	if len(topics) > 0 {
		topic = strings.Join(topics, ", ")
	}
	h.saveGenerated(w, r, gc, "Rapid Revision Sheet: "+topic, topic, res.Value, res.Fallback, model.ContentMetadata{})
}

func (h *Handler) handleMockPaper(w http.ResponseWriter, r *http.Request) {
	var req mockPaperRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	gc, ok := h.prepare(w, r, req.SubjectID, true)
	if !ok {
		return
	}
	if req.ShortCount <= 0 {
		req.ShortCount = llm.DefaultShortQuestions
	}
	if req.LongCount <= 0 {
		req.LongCount = llm.DefaultLongQuestions
	}
	res, err := h.llm.GenerateMockPaper(r.Context(), gc.input, prompts.MockPaperData{
		ShortCount: req.ShortCount,
		LongCount:  req.LongCount,
	})
	if err != nil {
		h.llmError(w, r, err)
		return
	}
	h.saveGenerated(w, r, gc, "Mock Paper: "+gc.subject.Name, "Mock Exam", res.Value, res.Fallback, model.ContentMetadata{})
}

// handleGetExamPlan answers an empty object when the subject has no plan yet.
func (h *Handler) handleGetExamPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.store.GetExamPlan(userID(r), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
