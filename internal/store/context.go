package store

import (
	"database/sql"
	"strings"

	"github.com/uniprep/copilot/internal/model"
)

const contextColumns = `id, user_id, subject_id, type, title, content, file_url, upload_date, topic, keywords,
	created_at, updated_at`

// CreateContext stores reference material. The subject must belong to c.UserID.
func (s *Store) CreateContext(c model.Context) (model.Context, error) {
	if _, err := s.GetSubject(c.UserID, c.SubjectID); err != nil {
		return model.Context{}, err
	}
	c.ID = newID()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	c.Metadata.Keywords = orEmpty(c.Metadata.Keywords)
	_, err := s.db.Exec(
		`INSERT INTO contexts (`+contextColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.SubjectID, c.Type, c.Title, c.Content, c.FileURL, c.Metadata.UploadDate,
		c.Metadata.Topic, toJSON(c.Metadata.Keywords), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return model.Context{}, err
	}
	return c, nil
}

// ListContexts returns a subject's material, newest first, optionally of one type.
func (s *Store) ListContexts(userID, subjectID string, typ model.ContextType) ([]model.Context, error) {
	q := `SELECT ` + contextColumns + ` FROM contexts WHERE user_id = ? AND subject_id = ?`
	args := []any{userID, subjectID}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	q += ` ORDER BY created_at DESC, rowid DESC`
	return s.queryContexts(q, args...)
}

// MaterialContexts returns the syllabus, notes and past-paper entries of a
// subject in creation order, the order prompts are assembled in.
func (s *Store) MaterialContexts(userID, subjectID string) ([]model.Context, error) {
	return s.queryContexts(
		`SELECT `+contextColumns+` FROM contexts
		 WHERE user_id = ? AND subject_id = ? AND type IN ('syllabus', 'notes', 'pyq')
		 ORDER BY created_at ASC, rowid ASC`,
		userID, subjectID,
	)
}

// SearchContexts matches keyword case-insensitively against title, content and keywords.
func (s *Store) SearchContexts(userID, subjectID, keyword string) ([]model.Context, error) {
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"
	return s.queryContexts(
		`SELECT `+contextColumns+` FROM contexts
		 WHERE user_id = ? AND subject_id = ?
		   AND (unicode_lower(title) LIKE ? ESCAPE '\' OR unicode_lower(content) LIKE ? ESCAPE '\' OR unicode_lower(keywords) LIKE ? ESCAPE '\')
		 ORDER BY created_at DESC, rowid DESC`,
		userID, subjectID, pattern, pattern, pattern,
	)
}

// GetContext returns one context owned by userID.
func (s *Store) GetContext(userID, id string) (*model.Context, error) {
	return scanContext(s.db.QueryRow(`SELECT `+contextColumns+` FROM contexts WHERE id = ? AND user_id = ?`, id, userID))
}

// UpdateContext overwrites the editable fields of a context owned by c.UserID.
func (s *Store) UpdateContext(c model.Context) (*model.Context, error) {
	err := rowsAffected(s.db.Exec(
		`UPDATE contexts SET type = ?, title = ?, content = ?, file_url = ?, topic = ?, keywords = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Type, c.Title, c.Content, c.FileURL, c.Metadata.Topic, toJSON(c.Metadata.Keywords), now(),
		c.ID, c.UserID,
	))
	if err != nil {
		return nil, err
	}
	return s.GetContext(c.UserID, c.ID)
}

// DeleteContext removes a context owned by userID.
func (s *Store) DeleteContext(userID, id string) error {
	return rowsAffected(s.db.Exec(`DELETE FROM contexts WHERE id = ? AND user_id = ?`, id, userID))
}

func (s *Store) queryContexts(q string, args ...any) ([]model.Context, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Context{}
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanContext(row scanner) (*model.Context, error) {
	var (
		c        model.Context
		upload   sql.NullTime
		keywords string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.SubjectID, &c.Type, &c.Title, &c.Content, &c.FileURL, &upload,
		&c.Metadata.Topic, &keywords, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if upload.Valid {
		c.Metadata.UploadDate = &upload.Time
	}
	if err := fromJSON(keywords, &c.Metadata.Keywords); err != nil {
		return nil, err
	}
	c.Metadata.Keywords = orEmpty(c.Metadata.Keywords)
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
