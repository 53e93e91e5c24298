package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uniprep/copilot/internal/model"
)

const planColumns = `id, user_id, subject_id, exam_date, blueprint, revision_plan, created_at, updated_at`

// GetExamPlan returns the plan of one user and subject.
func (s *Store) GetExamPlan(userID, subjectID string) (*model.ExamPlan, error) {
	return scanPlan(s.db.QueryRow(
		`SELECT `+planColumns+` FROM exam_plans WHERE user_id = ? AND subject_id = ?`, userID, subjectID,
	))
}

// SaveBlueprint stores bp on the user's plan for subjectID, creating the
// plan with an exam date of now when none exists.
func (s *Store) SaveBlueprint(userID, subjectID string, bp model.Blueprint) (*model.ExamPlan, error) {
	data, err := json.Marshal(bp)
	if err != nil {
		return nil, fmt.Errorf("encode blueprint: %w", err)
	}
	ts := now()
	_, err = s.db.Exec(
		`INSERT INTO exam_plans (id, user_id, subject_id, exam_date, blueprint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, subject_id) DO UPDATE SET blueprint = excluded.blueprint, updated_at = excluded.updated_at`,
		newID(), userID, subjectID, ts, string(data), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("save blueprint: %w", err)
	}
	return s.GetExamPlan(userID, subjectID)
}

// SaveRevisionPlan stores the revision plan and exam date on an existing plan.
func (s *Store) SaveRevisionPlan(userID, subjectID string, examDate time.Time, plan model.RevisionPlan) (*model.ExamPlan, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode revision plan: %w", err)
	}
	err = rowsAffected(s.db.Exec(
		`UPDATE exam_plans SET exam_date = ?, revision_plan = ?, updated_at = ? WHERE user_id = ? AND subject_id = ?`,
		examDate.UTC(), string(data), now(), userID, subjectID,
	))
	if err != nil {
		return nil, err
	}
	return s.GetExamPlan(userID, subjectID)
}

func scanPlan(row scanner) (*model.ExamPlan, error) {
	var (
		p                 model.ExamPlan
		blueprint, revise sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &p.SubjectID, &p.ExamDate, &blueprint, &revise, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if blueprint.Valid {
		p.Blueprint = &model.Blueprint{}
		if err := fromJSON(blueprint.String, p.Blueprint); err != nil {
			return nil, err
		}
	}
	if revise.Valid {
		p.RevisionPlan = &model.RevisionPlan{}
		if err := fromJSON(revise.String, p.RevisionPlan); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// HasBlueprint reports whether the user's plan for subjectID carries a blueprint.
func (s *Store) HasBlueprint(userID, subjectID string) (bool, error) {
	p, err := s.GetExamPlan(userID, subjectID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.Blueprint != nil, nil
}
