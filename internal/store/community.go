package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uniprep/copilot/internal/model"
)

// DefaultPostLimit is the page size of the community feed.
const DefaultPostLimit = 20

const postSelect = `SELECT p.id, p.user_id, COALESCE(u.name, ''), COALESCE(u.university, ''), COALESCE(u.branch, ''),
	p.content_id, p.type, p.title, %s, p.university, p.branch, p.semester, p.subject, p.topic, p.tags,
	p.upvotes, p.downvotes, p.view_count, p.status, p.reported_count, p.created_at, p.updated_at
	FROM community_posts p LEFT JOIN users u ON u.id = p.user_id`

// CreatePost shares content with the community.
func (s *Store) CreatePost(p model.CommunityPost) (model.CommunityPost, error) {
	payload, err := payloadJSON(p.Content)
	if err != nil {
		return model.CommunityPost{}, err
	}
	p.ID = newID()
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	p.Status = model.PostActive
	p.Metadata.Tags = orEmpty(p.Metadata.Tags)
	_, err = s.db.Exec(
		`INSERT INTO community_posts (id, user_id, content_id, type, title, content, university, branch, semester,
		 subject, topic, tags, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ContentID, p.Type, p.Title, payload, p.Metadata.University, p.Metadata.Branch,
		p.Metadata.Semester, p.Metadata.Subject, p.Metadata.Topic, toJSON(p.Metadata.Tags), p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.CommunityPost{}, fmt.Errorf("insert post: %w", err)
	}
	return p, nil
}

// ListPosts returns active posts matching f, newest first, without payloads.
func (s *Store) ListPosts(f model.PostFilter) ([]model.CommunityPost, error) {
	q := fmt.Sprintf(postSelect, "'null'") + ` WHERE p.status = 'active'`
	var args []any
	if f.University != "" {
		q += ` AND p.university = ?`
		args = append(args, f.University)
	}
	if f.Branch != "" {
		q += ` AND p.branch = ?`
		args = append(args, f.Branch)
	}
	if f.Semester != 0 {
		q += ` AND p.semester = ?`
		args = append(args, f.Semester)
	}
	if f.Subject != "" {
		q += ` AND p.subject = ?`
		args = append(args, f.Subject)
	}
	if f.Topic != "" {
		q += ` AND unicode_lower(p.topic) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(f.Topic))+"%")
	}
	if f.Type != "" {
		q += ` AND p.type = ?`
		args = append(args, f.Type)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPostLimit
	}
	q += ` ORDER BY p.created_at DESC, p.rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, max(f.Skip, 0))

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	posts := []model.CommunityPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// GetPost returns a post with its payload.
func (s *Store) GetPost(id string) (*model.CommunityPost, error) {
	return scanPost(s.db.QueryRow(fmt.Sprintf(postSelect, "p.content")+` WHERE p.id = ?`, id))
}

// ViewPost increments the view counter and returns the post.
func (s *Store) ViewPost(id string) (*model.CommunityPost, error) {
	if err := rowsAffected(s.db.Exec(`UPDATE community_posts SET view_count = view_count + 1 WHERE id = ?`, id)); err != nil {
		return nil, err
	}
	return s.GetPost(id)
}

// Vote records the user's vote on a post. A repeated identical vote changes
// nothing; a switched vote moves one count from the old side to the new one.
func (s *Store) Vote(postID, userID string, v model.VoteType) (model.VoteTally, error) {
	var tally model.VoteTally
	err := s.withTx(func(tx *sql.Tx) error {
		err := tx.QueryRow(`SELECT upvotes, downvotes FROM community_posts WHERE id = ?`, postID).
			Scan(&tally.Upvotes, &tally.Downvotes)
		if err != nil {
			return notFound(err)
		}

		var prev model.VoteType
		err = tx.QueryRow(`SELECT vote_type FROM community_votes WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&prev)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.Exec(
				`INSERT INTO community_votes (id, post_id, user_id, vote_type, created_at) VALUES (?, ?, ?, ?, ?)`,
				newID(), postID, userID, v, now(),
			); err != nil {
				return fmt.Errorf("insert vote: %w", err)
			}
			tally.Add(v, 1)
		case err != nil:
			return err
		case prev == v:
			return nil
		default:
			if _, err := tx.Exec(`UPDATE community_votes SET vote_type = ? WHERE post_id = ? AND user_id = ?`, v, postID, userID); err != nil {
				return fmt.Errorf("update vote: %w", err)
			}
			tally.Add(prev, -1)
			tally.Add(v, 1)
		}

		_, err = tx.Exec(
			`UPDATE community_posts SET upvotes = ?, downvotes = ?, updated_at = ? WHERE id = ?`,
			tally.Upvotes, tally.Downvotes, now(), postID,
		)
		return err
	})
	return tally, err
}

// Report increments the report counter. At model.ReportThreshold reports an
// active post becomes reported. It returns the new count and status.
func (s *Store) Report(postID string) (int, model.PostStatus, error) {
	var (
		count  int
		status model.PostStatus
	)
	err := s.withTx(func(tx *sql.Tx) error {
		err := rowsAffected(tx.Exec(
			`UPDATE community_posts SET reported_count = reported_count + 1,
			 status = CASE WHEN reported_count + 1 >= ? AND status = 'active' THEN 'reported' ELSE status END,
			 updated_at = ?
			 WHERE id = ?`,
			model.ReportThreshold, now(), postID,
		))
		if err != nil {
			return err
		}
		return tx.QueryRow(`SELECT reported_count, status FROM community_posts WHERE id = ?`, postID).Scan(&count, &status)
	})
	return count, status, err
}

// AddComment adds a comment to an existing post.
func (s *Store) AddComment(postID, userID, content string) (model.Comment, error) {
	c := model.Comment{ID: newID(), PostID: postID, Content: content, CreatedAt: now()}
	err := s.withTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT 1 FROM community_posts WHERE id = ?`, postID).Scan(&exists); err != nil {
			return notFound(err)
		}
		if err := tx.QueryRow(`SELECT id, name FROM users WHERE id = ?`, userID).Scan(&c.Author.ID, &c.Author.Name); err != nil {
			return notFound(err)
		}
		_, err := tx.Exec(
			`INSERT INTO community_comments (id, post_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.ID, postID, userID, content, c.CreatedAt,
		)
		return err
	})
	if err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// ListComments returns a post's comments, oldest first.
func (s *Store) ListComments(postID string) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.post_id, c.user_id, COALESCE(u.name, ''), c.content, c.created_at
		 FROM community_comments c LEFT JOIN users u ON u.id = c.user_id
		 WHERE c.post_id = ? ORDER BY c.created_at, c.rowid`, postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Author.ID, &c.Author.Name, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanPost(row scanner) (*model.CommunityPost, error) {
	var (
		p             model.CommunityPost
		author        model.Author
		payload, tags string
	)
	err := row.Scan(&p.ID, &p.UserID, &author.Name, &author.University, &author.Branch,
		&p.ContentID, &p.Type, &p.Title, &payload, &p.Metadata.University, &p.Metadata.Branch,
		&p.Metadata.Semester, &p.Metadata.Subject, &p.Metadata.Topic, &tags,
		&p.Upvotes, &p.Downvotes, &p.ViewCount, &p.Status, &p.ReportedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	author.ID = p.UserID
	p.Author = &author
	if payload != "null" && payload != "" {
		if p.Content, err = model.DecodePayload(p.Type, []byte(payload)); err != nil {
			return nil, err
		}
	}
	if err := fromJSON(tags, &p.Metadata.Tags); err != nil {
		return nil, err
	}
	p.Metadata.Tags = orEmpty(p.Metadata.Tags)
	return &p, nil
}
