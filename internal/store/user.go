package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uniprep/copilot/internal/model"
)

const userColumns = `id, email, password_hash, name, university, college, branch, semester,
	active_style_id, refresh_token, exam_dates, time_availability, created_at, updated_at`

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new user. It returns ErrConflict if the email is taken.
func (s *Store) CreateUser(u model.User) (model.User, error) {
	u.ID = newID()
	u.Email = NormalizeEmail(u.Email)
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	if u.ExamDates == nil {
		u.ExamDates = []model.ExamDate{}
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, password_hash, name, university, college, branch, semester,
		 exam_dates, time_availability, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.University, u.College, u.Branch, u.Semester,
		toJSON(u.ExamDates), toJSON(u.TimeAvailability), u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return model.User{}, ErrConflict
	}
	if err != nil {
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return model.User{}, err
	}
	slog.Info("created user", "id", u.ID, "email", u.Email)
	return u, nil
}

// GetUserByEmail returns a user by (normalized) email.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email)))
}

// GetUser returns a user by ID.
func (s *Store) GetUser(id string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UpdateProfile applies the non-nil fields of p and returns the updated user.
func (s *Store) UpdateProfile(id string, p model.ProfileUpdate) (*model.User, error) {
	u, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.University != nil {
		u.University = *p.University
	}
	if p.College != nil {
		u.College = *p.College
	}
	if p.Branch != nil {
		u.Branch = *p.Branch
	}
	if p.Semester != nil {
		u.Semester = *p.Semester
	}
	if p.ExamDates != nil {
		u.ExamDates = *p.ExamDates
	}
	if p.TimeAvailability != nil {
		u.TimeAvailability = *p.TimeAvailability
	}
	u.UpdatedAt = now()

	_, err = s.db.Exec(
		`UPDATE users SET name = ?, university = ?, college = ?, branch = ?, semester = ?,
		 exam_dates = ?, time_availability = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.University, u.College, u.Branch, u.Semester,
		toJSON(u.ExamDates), toJSON(u.TimeAvailability), u.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// SetRefreshToken stores the user's current refresh token. An empty token logs the user out.
func (s *Store) SetRefreshToken(id, token string) error {
	return rowsAffected(s.db.Exec(`UPDATE users SET refresh_token = ? WHERE id = ?`, token, id))
}

func scanUser(row scanner) (*model.User, error) {
	var (
		u         model.User
		activeID  sql.NullString
		examDates string
		timeAvail string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.University, &u.College, &u.Branch,
		&u.Semester, &activeID, &u.RefreshToken, &examDates, &timeAvail, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if activeID.Valid {
		u.ActiveStyleID = &activeID.String
	}
	if err := fromJSON(examDates, &u.ExamDates); err != nil {
		return nil, err
	}
	if err := fromJSON(timeAvail, &u.TimeAvailability); err != nil {
		return nil, err
	}
	if u.ExamDates == nil {
		u.ExamDates = []model.ExamDate{}
	}
	return &u, nil
}
