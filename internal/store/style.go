package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uniprep/copilot/internal/model"
)

const styleColumns = `id, user_id, name, is_default, is_public, sections, tone, max_word_count,
	approximate_length, instructions, created_at, updated_at`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// CreateStyle inserts a style profile owned by st.UserID.
func (s *Store) CreateStyle(st model.AnswerStyle) (model.AnswerStyle, error) {
	return insertStyle(s.db, st)
}

func insertStyle(q querier, st model.AnswerStyle) (model.AnswerStyle, error) {
	st.ID = newID()
	st.CreatedAt = now()
	st.UpdatedAt = st.CreatedAt
	st.Sections = orEmpty(st.Sections)
	_, err := q.Exec(
		`INSERT INTO answer_styles (`+styleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserID, st.Name, st.IsDefault, st.IsPublic, toJSON(st.Sections), st.Tone, st.MaxWordCount,
		st.ApproximateLength, st.Instructions, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return model.AnswerStyle{}, fmt.Errorf("insert style: %w", err)
	}
	return st, nil
}

// ListStyles returns the user's style profiles, oldest first.
func (s *Store) ListStyles(userID string) ([]model.AnswerStyle, error) {
	rows, err := s.db.Query(
		`SELECT `+styleColumns+` FROM answer_styles WHERE user_id = ? ORDER BY created_at, rowid`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	styles := []model.AnswerStyle{}
	for rows.Next() {
		st, err := scanStyle(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, *st)
	}
	return styles, rows.Err()
}

// GetStyle returns a style profile owned by userID.
func (s *Store) GetStyle(userID, id string) (*model.AnswerStyle, error) {
	return getStyle(s.db, userID, id)
}

func getStyle(q querier, userID, id string) (*model.AnswerStyle, error) {
	return scanStyle(q.QueryRow(`SELECT `+styleColumns+` FROM answer_styles WHERE id = ? AND user_id = ?`, id, userID))
}

// UpdateStyle overwrites the editable fields of a style owned by st.UserID.
func (s *Store) UpdateStyle(st model.AnswerStyle) (*model.AnswerStyle, error) {
	err := rowsAffected(s.db.Exec(
		`UPDATE answer_styles SET name = ?, is_public = ?, sections = ?, tone = ?, max_word_count = ?,
		 approximate_length = ?, instructions = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		st.Name, st.IsPublic, toJSON(orEmpty(st.Sections)), st.Tone, st.MaxWordCount,
		st.ApproximateLength, st.Instructions, now(), st.ID, st.UserID,
	))
	if err != nil {
		return nil, err
	}
	return s.GetStyle(st.UserID, st.ID)
}

// DeleteStyle removes a style owned by userID and clears it as the active style.
func (s *Store) DeleteStyle(userID, id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if err := rowsAffected(tx.Exec(`DELETE FROM answer_styles WHERE id = ? AND user_id = ?`, id, userID)); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE users SET active_style_id = NULL WHERE id = ? AND active_style_id = ?`, userID, id)
		return err
	})
}

// ActivateStyle marks a style owned by userID as the user's active style.
func (s *Store) ActivateStyle(userID, id string) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := getStyle(tx, userID, id); err != nil {
			return err
		}
		return rowsAffected(tx.Exec(`UPDATE users SET active_style_id = ? WHERE id = ?`, id, userID))
	})
}

// ResolveActiveStyle returns the style generation should use for userID:
// the active style if it still exists, else the oldest style (made active),
// else a newly created default style (made active). Repeated calls return
// the same profile.
func (s *Store) ResolveActiveStyle(userID string) (model.AnswerStyle, error) {
	var resolved model.AnswerStyle
	err := s.withTx(func(tx *sql.Tx) error {
		var active sql.NullString
		if err := tx.QueryRow(`SELECT active_style_id FROM users WHERE id = ?`, userID).Scan(&active); err != nil {
			return notFound(err)
		}
		if active.Valid {
			st, err := getStyle(tx, userID, active.String)
			if err == nil {
				resolved = *st
				return nil
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		st, err := scanStyle(tx.QueryRow(
			`SELECT `+styleColumns+` FROM answer_styles WHERE user_id = ? ORDER BY created_at, rowid LIMIT 1`, userID,
		))
		switch {
		case err == nil:
			resolved = *st
		case errors.Is(err, ErrNotFound):
			created, err := insertStyle(tx, model.DefaultStyle(userID))
			if err != nil {
				return err
			}
			slog.Info("created default style", "user", userID, "style", created.ID)
			resolved = created
		default:
			return err
		}
		_, err = tx.Exec(`UPDATE users SET active_style_id = ? WHERE id = ?`, resolved.ID, userID)
		return err
	})
	return resolved, err
}

func scanStyle(row scanner) (*model.AnswerStyle, error) {
	var (
		st       model.AnswerStyle
		sections string
	)
	err := row.Scan(&st.ID, &st.UserID, &st.Name, &st.IsDefault, &st.IsPublic, &sections, &st.Tone,
		&st.MaxWordCount, &st.ApproximateLength, &st.Instructions, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := fromJSON(sections, &st.Sections); err != nil {
		return nil, err
	}
	st.Sections = orEmpty(st.Sections)
	return &st, nil
}
