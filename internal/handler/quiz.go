package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/stats"
	"github.com/uniprep/copilot/internal/store"
)

type quizRequest struct {
	SubjectID     string           `json:"subjectId"`
	Topic         string           `json:"topic"`
	Question      string           `json:"question"`
	Options       []string         `json:"options"`
	CorrectAnswer string           `json:"correctAnswer"`
	Explanation   string           `json:"explanation"`
	Difficulty    model.Difficulty `json:"difficulty"`
	Type          model.QuizType   `json:"type"`
}

type attemptRequest struct {
	QuizID     string  `json:"quizId"`
	UserAnswer string  `json:"userAnswer"`
	TimeTaken  float64 `json:"timeTaken"`
}

type attemptResponse struct {
	Attempt       model.QuizAttempt `json:"attempt"`
	IsCorrect     bool              `json:"isCorrect"`
	CorrectAnswer string            `json:"correctAnswer"`
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quizzes, err := h.store.ListQuizzes(userID(r), chi.URLParam(r, "id"), store.QuizFilter{
		Topic:      q.Get("topic"),
		Difficulty: model.Difficulty(q.Get("difficulty")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	switch {
	case req.SubjectID == "":
		h.required(w, r, "subjectId")
		return
	case strings.TrimSpace(req.Question) == "":
		h.required(w, r, "question")
		return
	case strings.TrimSpace(req.CorrectAnswer) == "":
		h.required(w, r, "correctAnswer")
		return
	}
	quiz, err := h.store.CreateQuiz(model.Quiz{
		UserID:        userID(r),
		SubjectID:     req.SubjectID,
		Topic:         req.Topic,
		Question:      req.Question,
		Options:       req.Options,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Difficulty:    req.Difficulty,
		Type:          req.Type,
	})
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// gradeAnswer compares answers ignoring case and surrounding space.
func gradeAnswer(correct, given string) bool {
	return strings.EqualFold(strings.TrimSpace(correct), strings.TrimSpace(given))
}

func (h *Handler) handleAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if req.QuizID == "" {
		h.required(w, r, "quizId")
		return
	}
	uid := userID(r)
	quiz, err := h.store.GetQuiz(uid, req.QuizID)
	if err != nil {
		h.storeError(w, r, err, "QuizNotFound")
		return
	}
	correct := gradeAnswer(quiz.CorrectAnswer, req.UserAnswer)
	attempt, err := h.store.RecordAttempt(model.QuizAttempt{
		UserID:     uid,
		QuizID:     quiz.ID,
		SubjectID:  quiz.SubjectID,
		Topic:      quiz.Topic,
		IsCorrect:  correct,
		TimeTaken:  req.TimeTaken,
		UserAnswer: req.UserAnswer,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, attemptResponse{Attempt: attempt, IsCorrect: correct, CorrectAnswer: quiz.CorrectAnswer})
}

func (h *Handler) handleQuizAnalytics(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")
	attempts, err := h.store.ListAttempts(userID(r), subjectID, r.URL.Query().Get("topic"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(attempts))
}
