package store

import (
	"github.com/uniprep/copilot/internal/model"
)

const subjectColumns = `id, user_id, name, code, created_at, updated_at`

// CreateSubject inserts a subject owned by sub.UserID.
func (s *Store) CreateSubject(sub model.Subject) (model.Subject, error) {
	sub.ID = newID()
	sub.CreatedAt = now()
	sub.UpdatedAt = sub.CreatedAt
	_, err := s.db.Exec(
		`INSERT INTO subjects (id, user_id, name, code, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, sub.Name, sub.Code, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return model.Subject{}, err
	}
	return sub, nil
}

// ListSubjects returns the user's subjects, newest first.
func (s *Store) ListSubjects(userID string) ([]model.Subject, error) {
	rows, err := s.db.Query(
		`SELECT `+subjectColumns+` FROM subjects WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subjects := []model.Subject{}
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, *sub)
	}
	return subjects, rows.Err()
}

// GetSubject returns a subject owned by userID.
func (s *Store) GetSubject(userID, id string) (*model.Subject, error) {
	return scanSubject(s.db.QueryRow(
		`SELECT `+subjectColumns+` FROM subjects WHERE id = ? AND user_id = ?`, id, userID,
	))
}

// UpdateSubject changes name and code of a subject owned by userID.
func (s *Store) UpdateSubject(userID, id, name, code string) (*model.Subject, error) {
	err := rowsAffected(s.db.Exec(
		`UPDATE subjects SET name = ?, code = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		name, code, now(), id, userID,
	))
	if err != nil {
		return nil, err
	}
	return s.GetSubject(userID, id)
}

// DeleteSubject removes a subject and, by cascade, its material, content, plan and quizzes.
func (s *Store) DeleteSubject(userID, id string) error {
	return rowsAffected(s.db.Exec(`DELETE FROM subjects WHERE id = ? AND user_id = ?`, id, userID))
}

func scanSubject(row scanner) (*model.Subject, error) {
	var sub model.Subject
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Code, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}
