package model

import "time"

// UserExport is the top-level JSON structure written by the export command.
type UserExport struct {
	ExportedAt time.Time       `json:"exportedAt"`
	User       User            `json:"user"`
	Subjects   []SubjectExport `json:"subjects"`
	Styles     []AnswerStyle   `json:"styles"`
	Sessions   []Session       `json:"sessions"`
	Attempts   []QuizAttempt   `json:"quizAttempts"`
}

// SubjectExport bundles everything stored under one subject.
type SubjectExport struct {
	Subject  Subject            `json:"subject"`
	Contexts []Context          `json:"contexts"`
	Content  []GeneratedContent `json:"content"`
	ExamPlan *ExamPlan          `json:"examPlan,omitempty"`
	Quizzes  []Quiz             `json:"quizzes"`
}
