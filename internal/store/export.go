package store

import (
	"errors"
	"fmt"

	"github.com/uniprep/copilot/internal/model"
)

// ExportUser collects everything stored for one user.
func (s *Store) ExportUser(userID string) (model.UserExport, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return model.UserExport{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	subjects, err := s.ListSubjects(userID)
	if err != nil {
		return model.UserExport{}, fmt.Errorf("list subjects: %w", err)
	}

	out := model.UserExport{
		ExportedAt: now(),
		User:       *user,
		Subjects:   make([]model.SubjectExport, 0, len(subjects)),
	}
	for _, sub := range subjects {
		se := model.SubjectExport{Subject: sub}
		if se.Contexts, err = s.ListContexts(userID, sub.ID, ""); err != nil {
			return model.UserExport{}, fmt.Errorf("list contexts of %s: %w", sub.ID, err)
		}
		if se.Content, err = s.ListContent(userID, sub.ID, ""); err != nil {
			return model.UserExport{}, fmt.Errorf("list content of %s: %w", sub.ID, err)
		}
		if se.Quizzes, err = s.ListQuizzes(userID, sub.ID, QuizFilter{}); err != nil {
			return model.UserExport{}, fmt.Errorf("list quizzes of %s: %w", sub.ID, err)
		}
		plan, err := s.GetExamPlan(userID, sub.ID)
		switch {
		case err == nil:
			se.ExamPlan = plan
		case !errors.Is(err, ErrNotFound):
			return model.UserExport{}, fmt.Errorf("get exam plan of %s: %w", sub.ID, err)
		}
		out.Subjects = append(out.Subjects, se)
	}

	if out.Styles, err = s.ListStyles(userID); err != nil {
		return model.UserExport{}, fmt.Errorf("list styles: %w", err)
	}
	if out.Sessions, err = s.AllSessions(userID); err != nil {
		return model.UserExport{}, fmt.Errorf("list sessions: %w", err)
	}
	if out.Attempts, err = s.ListAttempts(userID, "", ""); err != nil {
		return model.UserExport{}, fmt.Errorf("list attempts: %w", err)
	}
	return out, nil
}
