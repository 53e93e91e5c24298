package store

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"modernc.org/sqlite"
)

func init() {
	// SQLite's built-in lower() only folds ASCII.
	sqlite.MustRegisterDeterministicScalarFunction("unicode_lower", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// SchemaVersion is recorded in the metadata table after migration.
const SchemaVersion = "1"

// ErrNotFound is returned when a row is absent or owned by another user.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write.
var ErrConflict = errors.New("already exists")

type Store struct {
	db *sql.DB
}

// New opens the SQLite database at dbPath and applies the schema.
// A single connection serializes writes, which keeps ":memory:" databases
// alive for the lifetime of the Store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS app_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		university TEXT NOT NULL DEFAULT '',
		college TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		semester INTEGER NOT NULL DEFAULT 0,
		active_style_id TEXT,
		refresh_token TEXT NOT NULL DEFAULT '',
		exam_dates TEXT NOT NULL DEFAULT '[]',
		time_availability TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS contexts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		file_url TEXT NOT NULL DEFAULT '',
		upload_date DATETIME,
		topic TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_contexts_subject ON contexts(user_id, subject_id);

	CREATE TABLE IF NOT EXISTS answer_styles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0,
		is_public INTEGER NOT NULL DEFAULT 0,
		sections TEXT NOT NULL DEFAULT '[]',
		tone TEXT NOT NULL,
		max_word_count INTEGER NOT NULL DEFAULT 0,
		approximate_length TEXT NOT NULL DEFAULT '',
		instructions TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS generated_contents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT 'null',
		style_id TEXT NOT NULL DEFAULT '',
		context_used TEXT NOT NULL DEFAULT '[]',
		attached_files TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_contents_subject ON generated_contents(user_id, subject_id);

	CREATE TABLE IF NOT EXISTS exam_plans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		exam_date DATETIME NOT NULL,
		blueprint TEXT,
		revision_plan TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (user_id, subject_id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		question TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT 'medium',
		type TEXT NOT NULL DEFAULT 'mcq',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS quiz_attempts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		quiz_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		time_taken REAL NOT NULL DEFAULT 0,
		user_answer TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_user ON quiz_attempts(user_id, subject_id);

	CREATE TABLE IF NOT EXISTS study_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		content_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON study_sessions(user_id, start_time);

	CREATE TABLE IF NOT EXISTS community_posts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT 'null',
		university TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		semester INTEGER NOT NULL DEFAULT 0,
		subject TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		upvotes INTEGER NOT NULL DEFAULT 0,
		downvotes INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		reported_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_status ON community_posts(status, created_at);

	CREATE TABLE IF NOT EXISTS community_votes (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		vote_type TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (post_id, user_id),
		FOREIGN KEY (post_id) REFERENCES community_posts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS community_comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (post_id) REFERENCES community_posts(id) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetMetadata("schema_version", SchemaVersion)
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}

// toJSON encodes a list or object column. Nil slices become "[]".
func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}

// fromJSON decodes a column written by toJSON.
func fromJSON(col string, v any) error {
	if col == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col), v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// orEmpty keeps list fields as [] in JSON responses.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// rowsAffected maps an update that touched nothing to ErrNotFound.
func rowsAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
