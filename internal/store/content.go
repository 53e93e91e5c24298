package store

import (
	"encoding/json"
	"fmt"

	"github.com/uniprep/copilot/internal/model"
)

const contentColumns = `id, user_id, subject_id, type, title, topic, content, style_id, context_used,
	attached_files, metadata, created_at, updated_at`

// CreateContent stores generated content. The subject must belong to c.UserID.
func (s *Store) CreateContent(c model.GeneratedContent) (model.GeneratedContent, error) {
	if _, err := s.GetSubject(c.UserID, c.SubjectID); err != nil {
		return model.GeneratedContent{}, err
	}
	payload, err := payloadJSON(c.Content)
	if err != nil {
		return model.GeneratedContent{}, err
	}
	c.ID = newID()
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	c.ContextUsed = orEmpty(c.ContextUsed)
	c.AttachedFiles = orEmpty(c.AttachedFiles)
	_, err = s.db.Exec(
		`INSERT INTO generated_contents (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.SubjectID, c.Type, c.Title, c.Topic, payload, c.StyleID,
		toJSON(c.ContextUsed), toJSON(c.AttachedFiles), toJSON(c.Metadata), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return model.GeneratedContent{}, fmt.Errorf("insert content: %w", err)
	}
	return c, nil
}

// ListContent returns a subject's generated content, newest first, optionally of one type.
func (s *Store) ListContent(userID, subjectID string, typ model.ContentType) ([]model.GeneratedContent, error) {
	q := `SELECT ` + contentColumns + ` FROM generated_contents WHERE user_id = ? AND subject_id = ?`
	args := []any{userID, subjectID}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.GeneratedContent{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetContent returns generated content owned by userID.
func (s *Store) GetContent(userID, id string) (*model.GeneratedContent, error) {
	return scanContent(s.db.QueryRow(
		`SELECT `+contentColumns+` FROM generated_contents WHERE id = ? AND user_id = ?`, id, userID,
	))
}

// ContentPayload returns the payload of any content item, regardless of owner.
// Community posts use it to show and clone the content they were shared from.
func (s *Store) ContentPayload(id string) (model.Payload, error) {
	c, err := scanContent(s.db.QueryRow(`SELECT `+contentColumns+` FROM generated_contents WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	return c.Content, nil
}

// UpdateContent overwrites title, topic and payload of content owned by c.UserID.
// The stored type is kept; c.Content must match it.
func (s *Store) UpdateContent(c model.GeneratedContent) (*model.GeneratedContent, error) {
	payload, err := payloadJSON(c.Content)
	if err != nil {
		return nil, err
	}
	err = rowsAffected(s.db.Exec(
		`UPDATE generated_contents SET title = ?, topic = ?, content = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		c.Title, c.Topic, payload, now(), c.ID, c.UserID,
	))
	if err != nil {
		return nil, err
	}
	return s.GetContent(c.UserID, c.ID)
}

// DeleteContent removes content owned by userID.
func (s *Store) DeleteContent(userID, id string) error {
	return rowsAffected(s.db.Exec(`DELETE FROM generated_contents WHERE id = ? AND user_id = ?`, id, userID))
}

func payloadJSON(p model.Payload) (string, error) {
	if p == nil {
		return "null", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return string(data), nil
}

func scanContent(row scanner) (*model.GeneratedContent, error) {
	var (
		c                                        model.GeneratedContent
		payload, contextUsed, attached, metadata string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.SubjectID, &c.Type, &c.Title, &c.Topic, &payload, &c.StyleID,
		&contextUsed, &attached, &metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if payload != "null" && payload != "" {
		if c.Content, err = model.DecodePayload(c.Type, []byte(payload)); err != nil {
			return nil, err
		}
	}
	if err := fromJSON(contextUsed, &c.ContextUsed); err != nil {
		return nil, err
	}
	if err := fromJSON(attached, &c.AttachedFiles); err != nil {
		return nil, err
	}
	if err := fromJSON(metadata, &c.Metadata); err != nil {
		return nil, err
	}
	c.ContextUsed = orEmpty(c.ContextUsed)
	c.AttachedFiles = orEmpty(c.AttachedFiles)
	return &c, nil
}
