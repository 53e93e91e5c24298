package store

import (
	"fmt"

	"github.com/uniprep/copilot/internal/model"
)

const (
	quizColumns    = `id, user_id, subject_id, topic, question, options, correct_answer, explanation, difficulty, type, created_at`
	attemptColumns = `id, user_id, quiz_id, subject_id, topic, is_correct, time_taken, user_answer, timestamp`
)

// QuizFilter narrows a quiz listing. Empty fields match everything.
type QuizFilter struct {
	Topic      string
	Difficulty model.Difficulty
}

// CreateQuiz adds a question to the user's bank. The subject must belong to q.UserID.
func (s *Store) CreateQuiz(q model.Quiz) (model.Quiz, error) {
	if _, err := s.GetSubject(q.UserID, q.SubjectID); err != nil {
		return model.Quiz{}, err
	}
	q.ID = newID()
	q.CreatedAt = now()
	q.Options = orEmpty(q.Options)
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if q.Type == "" {
		q.Type = model.QuizMCQ
	}
	_, err := s.db.Exec(
		`INSERT INTO quizzes (`+quizColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.UserID, q.SubjectID, q.Topic, q.Question, toJSON(q.Options), q.CorrectAnswer,
		q.Explanation, q.Difficulty, q.Type, q.CreatedAt,
	)
	if err != nil {
		return model.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return q, nil
}

// ListQuizzes returns a subject's questions in creation order.
func (s *Store) ListQuizzes(userID, subjectID string, f QuizFilter) ([]model.Quiz, error) {
	q := `SELECT ` + quizColumns + ` FROM quizzes WHERE user_id = ? AND subject_id = ?`
	args := []any{userID, subjectID}
	if f.Topic != "" {
		q += ` AND topic = ?`
		args = append(args, f.Topic)
	}
	if f.Difficulty != "" {
		q += ` AND difficulty = ?`
		args = append(args, f.Difficulty)
	}
	q += ` ORDER BY created_at, rowid`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Quiz{}
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *quiz)
	}
	return out, rows.Err()
}

// GetQuiz returns a question owned by userID.
func (s *Store) GetQuiz(userID, id string) (*model.Quiz, error) {
	return scanQuiz(s.db.QueryRow(`SELECT `+quizColumns+` FROM quizzes WHERE id = ? AND user_id = ?`, id, userID))
}

// RecordAttempt logs an answer.
func (s *Store) RecordAttempt(a model.QuizAttempt) (model.QuizAttempt, error) {
	a.ID = newID()
	a.Timestamp = now()
	_, err := s.db.Exec(
		`INSERT INTO quiz_attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.QuizID, a.SubjectID, a.Topic, a.IsCorrect, a.TimeTaken, a.UserAnswer, a.Timestamp,
	)
	if err != nil {
		return model.QuizAttempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

// ListAttempts returns the user's attempts in order, optionally narrowed to
// a subject and a topic.
func (s *Store) ListAttempts(userID, subjectID, topic string) ([]model.QuizAttempt, error) {
	q := `SELECT ` + attemptColumns + ` FROM quiz_attempts WHERE user_id = ?`
	args := []any{userID}
	if subjectID != "" {
		q += ` AND subject_id = ?`
		args = append(args, subjectID)
	}
	if topic != "" {
		q += ` AND topic = ?`
		args = append(args, topic)
	}
	q += ` ORDER BY timestamp, rowid`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.QuizAttempt{}
	for rows.Next() {
		var a model.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.SubjectID, &a.Topic, &a.IsCorrect,
			&a.TimeTaken, &a.UserAnswer, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanQuiz(row scanner) (*model.Quiz, error) {
	var (
		q       model.Quiz
		options string
	)
	err := row.Scan(&q.ID, &q.UserID, &q.SubjectID, &q.Topic, &q.Question, &options, &q.CorrectAnswer,
		&q.Explanation, &q.Difficulty, &q.Type, &q.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if err := fromJSON(options, &q.Options); err != nil {
		return nil, err
	}
	q.Options = orEmpty(q.Options)
	return &q, nil
}
