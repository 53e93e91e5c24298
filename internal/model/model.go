package model

import (
	"context"
	"time"
)

// User represents a registered student.
type User struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	PasswordHash     string           `json:"-"`
	Name             string           `json:"name"`
	University       string           `json:"university"`
	College          string           `json:"college"`
	Branch           string           `json:"branch"`
	Semester         int              `json:"semester"`
	ActiveStyleID    *string          `json:"activeStyleProfileId,omitempty"`
	RefreshToken     string           `json:"-"`
	ExamDates        []ExamDate       `json:"examDates"`
	TimeAvailability TimeAvailability `json:"timeAvailability"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// ExamDate records an upcoming exam for one of the user's subjects.
type ExamDate struct {
	SubjectID string `json:"subjectId"`
	ExamDate  string `json:"examDate"`
	ExamType  string `json:"examType,omitempty"` // midterm, final, internal
}

// TimeAvailability describes how much the user can study.
type TimeAvailability struct {
	HoursPerDay         float64  `json:"hoursPerDay,omitempty"`
	PreferredStudyTimes []string `json:"preferredStudyTimes,omitempty"`
}

// PublicUser is the trimmed user shape returned by auth endpoints.
type PublicUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	University string `json:"university"`
	College    string `json:"college"`
	Branch     string `json:"branch"`
	Semester   int    `json:"semester"`
}

// Public returns the auth-endpoint view of the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		University: u.University,
		College:    u.College,
		Branch:     u.Branch,
		Semester:   u.Semester,
	}
}

// Author is the denormalized user summary attached to community items.
type Author struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	University string `json:"university,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

// Subject is a course the user is preparing for.
type Subject struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContextType classifies reference material.
type ContextType string

const (
	ContextSyllabus  ContextType = "syllabus"
	ContextPYQ       ContextType = "pyq"
	ContextNotes     ContextType = "notes"
	ContextReference ContextType = "reference"
)

// Valid reports whether t is a known context type.
func (t ContextType) Valid() bool {
	switch t {
	case ContextSyllabus, ContextPYQ, ContextNotes, ContextReference:
		return true
	}
	return false
}

// Context is a stored piece of reference material for a subject.
type Context struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	SubjectID string          `json:"subjectId"`
	Type      ContextType     `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	FileURL   string          `json:"fileUrl,omitempty"`
	Metadata  ContextMetadata `json:"metadata"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ContextMetadata holds optional descriptors of a context.
type ContextMetadata struct {
	UploadDate *time.Time `json:"uploadDate,omitempty"`
	Topic      string     `json:"topic,omitempty"`
	Keywords   []string   `json:"keywords"`
}

// Tone is the register a style profile asks for.
type Tone string

const (
	ToneFormalExam Tone = "formal_exam"
	ToneConceptual Tone = "conceptual"
	ToneCasual     Tone = "casual"
	ToneAcademic   Tone = "academic"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneFormalExam, ToneConceptual, ToneCasual, ToneAcademic:
		return true
	}
	return false
}

// Length is the approximate answer length of a style profile.
type Length string

const (
	LengthShort    Length = "short"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

// AnswerStyle is a user-defined output formatting preference.
type AnswerStyle struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	IsDefault         bool      `json:"isDefault"`
	IsPublic          bool      `json:"isPublic"`
	Sections          []string  `json:"sections"`
	Tone              Tone      `json:"tone"`
	MaxWordCount      int       `json:"maxWordCount,omitempty"`
	ApproximateLength Length    `json:"approximateLength,omitempty"`
	Instructions      string    `json:"instructions,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ContentMetadata records the generation parameters of a content item.
type ContentMetadata struct {
	Depth       string     `json:"depth,omitempty"`
	WordCount   int        `json:"wordCount,omitempty"`
	SlideCount  int        `json:"slideCount,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	Fallback    bool       `json:"fallback,omitempty"`
}

// ExamPlan holds the blueprint and revision plan for one user and subject.
type ExamPlan struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	SubjectID    string        `json:"subjectId"`
	ExamDate     time.Time     `json:"examDate"`
	Blueprint    *Blueprint    `json:"blueprint,omitempty"`
	RevisionPlan *RevisionPlan `json:"revisionPlan,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuizType is the answer format of a quiz question.
type QuizType string

const (
	QuizMCQ   QuizType = "mcq"
	QuizShort QuizType = "short"
	QuizLong  QuizType = "long"
)

// Quiz is one question in the user's quiz bank.
type Quiz struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	SubjectID     string     `json:"subjectId"`
	Topic         string     `json:"topic"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Explanation   string     `json:"explanation,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	Type          QuizType   `json:"type"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// QuizAttempt logs one answer to a quiz question.
type QuizAttempt struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	QuizID     string    `json:"quizId"`
	SubjectID  string    `json:"subjectId"`
	Topic      string    `json:"topic"`
	IsCorrect  bool      `json:"isCorrect"`
	TimeTaken  float64   `json:"timeTaken"`
	UserAnswer string    `json:"userAnswer"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionMode is what the user was doing during a study session.
type SessionMode string

const (
	ModeNotes    SessionMode = "notes"
	ModeQuiz     SessionMode = "quiz"
	ModeExam     SessionMode = "exam"
	ModeRevision SessionMode = "revision"
)

// Valid reports whether m is a known session mode.
func (m SessionMode) Valid() bool {
	switch m {
	case ModeNotes, ModeQuiz, ModeExam, ModeRevision:
		return true
	}
	return false
}

// Session tracks study time.
type Session struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	SubjectID    string      `json:"subjectId,omitempty"`
	SubjectName  string      `json:"subjectName,omitempty"`
	Mode         SessionMode `json:"mode"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      *time.Time  `json:"endTime,omitempty"`
	DurationMs   int64       `json:"duration"`
	ContentID    string      `json:"contentId,omitempty"`
	ContentTitle string      `json:"contentTitle,omitempty"`
}

// PostStatus is the moderation state of a community post.
type PostStatus string

const (
	PostActive   PostStatus = "active"
	PostReported PostStatus = "reported"
	PostHidden   PostStatus = "hidden"
)

// ReportThreshold is the report count at which a post leaves the public feed.
const ReportThreshold = 5

// VoteType is the direction of a community vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// PostMetadata describes where a community post applies.
type PostMetadata struct {
	University string   `json:"university"`
	Branch     string   `json:"branch"`
	Semester   int      `json:"semester"`
	Subject    string   `json:"subject"`
	Topic      string   `json:"topic"`
	Tags       []string `json:"tags"`
}

// PostFilter narrows the community feed.
type PostFilter struct {
	University string
	Branch     string
	Semester   int
	Subject    string
	Topic      string
	Type       ContentType
	Limit      int
	Skip       int
}

// Comment is a reply on a community post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    Author    `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteTally is the denormalized vote counters of a post.
type VoteTally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

type userIDCtxKey struct{}

// ContextWithUserID stores the authenticated user ID in the request context.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, id)
}

// UserIDFromContext retrieves the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDCtxKey{}).(string)
	return id
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Env            string   // "development" exposes stack traces in error bodies
	UploadPatterns []string // accepted context upload names, doublestar syntax
	MaxUploadBytes int64
}

// Development reports whether the server runs in development mode.
func (c ServerConfig) Development() bool {
	return c.Env == "development"
}

// ProfileUpdate is a partial update of the user's profile. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name             *string           `json:"name"`
	University       *string           `json:"university"`
	College          *string           `json:"college"`
	Branch           *string           `json:"branch"`
	Semester         *int              `json:"semester"`
	ExamDates        *[]ExamDate       `json:"examDates"`
	TimeAvailability *TimeAvailability `json:"timeAvailability"`
}

// Add moves the counter for v by delta.
func (t *VoteTally) Add(v VoteType, delta int) {
	switch v {
	case Upvote:
		t.Upvotes += delta
	case Downvote:
		t.Downvotes += delta
	}
}
