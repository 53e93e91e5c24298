package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/stats"
	"github.com/uniprep/copilot/internal/store"
)

type profileResponse struct {
	*model.User
	Subjects    []model.Subject    `json:"subjects"`
	ActiveStyle *model.AnswerStyle `json:"activeStyleProfile,omitempty"`
}

type progressResponse struct {
	Quiz           progressQuiz `json:"quiz"`
	StudyStreak    int          `json:"studyStreak"`
	TotalStudyTime float64      `json:"totalStudyTime"` // hours
	TotalSessions  int          `json:"totalSessions"`
}

type progressQuiz struct {
	TotalQuestions int               `json:"totalQuestions"`
	CorrectAnswers int               `json:"correctAnswers"`
	Accuracy       float64           `json:"accuracy"`
	TopicAccuracy  []stats.TopicStat `json:"topicAccuracy"`
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	user, err := h.store.GetUser(uid)
	if err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return
	}
	subjects, err := h.store.ListSubjects(uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := profileResponse{User: user, Subjects: subjects}
	if user.ActiveStyleID != nil {
		st, err := h.store.GetStyle(uid, *user.ActiveStyleID)
		switch {
		case err == nil:
			resp.ActiveStyle = st
		case !errors.Is(err, store.ErrNotFound):
			h.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.ProfileUpdate
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if req.Name != nil && *req.Name == "" {
		h.required(w, r, "name")
		return
	}
	user, err := h.store.UpdateProfile(userID(r), req)
	if err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleProgress reports quiz accuracy, optionally for one subject, along
// with the study streak and total study time across all sessions.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	attempts, err := h.store.ListAttempts(uid, r.URL.Query().Get("subjectId"), "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sessions, err := h.store.AllSessions(uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summary := stats.Summarize(attempts)
	writeJSON(w, http.StatusOK, progressResponse{
		Quiz: progressQuiz{
			TotalQuestions: summary.Total,
			CorrectAnswers: summary.Correct,
			Accuracy:       summary.Accuracy,
			TopicAccuracy:  summary.Topics,
		},
		StudyStreak:    stats.Streak(sessions, time.Now()),
		TotalStudyTime: stats.StudyHours(sessions),
		TotalSessions:  len(sessions),
	})
}
