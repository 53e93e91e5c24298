package store

import (
	"database/sql"
	"fmt"

	"github.com/uniprep/copilot/internal/model"
)

// DefaultSessionLimit is the number of sessions listed when no limit is given.
const DefaultSessionLimit = 50

const sessionSelect = `SELECT ss.id, ss.user_id, ss.subject_id, COALESCE(sub.name, ''), ss.mode, ss.start_time,
	ss.end_time, ss.duration_ms, ss.content_id, COALESCE(gc.title, '')
	FROM study_sessions ss
	LEFT JOIN subjects sub ON sub.id = ss.subject_id AND sub.user_id = ss.user_id
	LEFT JOIN generated_contents gc ON gc.id = ss.content_id AND gc.user_id = ss.user_id`

// StartSession records the start of a study session.
func (s *Store) StartSession(sess model.Session) (model.Session, error) {
	sess.ID = newID()
	sess.StartTime = now()
	if sess.Mode == "" {
		sess.Mode = model.ModeNotes
	}
	_, err := s.db.Exec(
		`INSERT INTO study_sessions (id, user_id, subject_id, mode, start_time, content_id) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.SubjectID, sess.Mode, sess.StartTime, sess.ContentID,
	)
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession stamps the end time and duration of a session owned by userID.
func (s *Store) EndSession(userID, id string) (*model.Session, error) {
	sess, err := s.getSession(userID, id)
	if err != nil {
		return nil, err
	}
	end := now()
	duration := end.Sub(sess.StartTime).Milliseconds()
	_, err = s.db.Exec(
		`UPDATE study_sessions SET end_time = ?, duration_ms = ? WHERE id = ? AND user_id = ?`,
		end, duration, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return s.getSession(userID, id)
}

// ListSessions returns the user's sessions, most recent first.
func (s *Store) ListSessions(userID, subjectID string, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	q := sessionSelect + ` WHERE ss.user_id = ?`
	args := []any{userID}
	if subjectID != "" {
		q += ` AND ss.subject_id = ?`
		args = append(args, subjectID)
	}
	q += ` ORDER BY ss.start_time DESC, ss.rowid DESC LIMIT ?`
	args = append(args, limit)
	return s.querySessions(q, args...)
}

// AllSessions returns every session of the user, for progress and export.
func (s *Store) AllSessions(userID string) ([]model.Session, error) {
	return s.querySessions(sessionSelect+` WHERE ss.user_id = ? ORDER BY ss.start_time DESC, ss.rowid DESC`, userID)
}

func (s *Store) getSession(userID, id string) (*model.Session, error) {
	return scanSession(s.db.QueryRow(sessionSelect+` WHERE ss.id = ? AND ss.user_id = ?`, id, userID))
}

func (s *Store) querySessions(q string, args ...any) ([]model.Session, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		sess model.Session
		end  sql.NullTime
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.SubjectID, &sess.SubjectName, &sess.Mode, &sess.StartTime,
		&end, &sess.DurationMs, &sess.ContentID, &sess.ContentTitle)
	if err != nil {
		return nil, notFound(err)
	}
	if end.Valid {
		sess.EndTime = &end.Time
	}
	return &sess, nil
}
