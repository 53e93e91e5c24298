package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentType selects the payload variant of generated content.
type ContentType string

const (
	ContentNotes         ContentType = "notes"
	ContentReport        ContentType = "report"
	ContentPPT           ContentType = "ppt"
	ContentRevisionSheet ContentType = "revision_sheet"
	ContentMockPaper     ContentType = "mock_paper"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentNotes, ContentReport, ContentPPT, ContentRevisionSheet, ContentMockPaper:
		return true
	}
	return false
}

// Payload is the type-specific body of generated content.
type Payload interface {
	Kind() ContentType
}

// Section is a titled block of prose.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NotesPayload is the body of study notes.
type NotesPayload struct {
	Sections []Section `json:"sections"`
}

func (NotesPayload) Kind() ContentType { return ContentNotes }

// ReportPayload is the body of an academic report.
type ReportPayload struct {
	Sections   []Section `json:"sections"`
	References []string  `json:"references"`
}

func (ReportPayload) Kind() ContentType { return ContentReport }

// Slide is one presentation slide.
type Slide struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	SpeakerNotes string   `json:"speakerNotes"`
}

// PPTPayload is the body of a presentation.
type PPTPayload struct {
	Slides []Slide `json:"slides"`
}

func (PPTPayload) Kind() ContentType { return ContentPPT }

// Definition is a term and its meaning.
type Definition struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// RevisionSheetPayload is the body of a rapid revision sheet.
type RevisionSheetPayload struct {
	KeyPoints   []string     `json:"keyPoints"`
	Formulae    []string     `json:"formulae"`
	Definitions []Definition `json:"definitions"`
}

func (RevisionSheetPayload) Kind() ContentType { return ContentRevisionSheet }

// MockQuestion is a question with an outline answer.
type MockQuestion struct {
	Type     string `json:"type"` // short or long
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MockPaperPayload is the body of a mock exam paper.
type MockPaperPayload struct {
	Questions []MockQuestion `json:"questions"`
}

func (MockPaperPayload) Kind() ContentType { return ContentMockPaper }

// DecodePayload unmarshals data into the variant selected by t.
func DecodePayload(t ContentType, data []byte) (Payload, error) {
	switch t {
	case ContentNotes:
		return decode[NotesPayload](data)
	case ContentReport:
		return decode[ReportPayload](data)
	case ContentPPT:
		return decode[PPTPayload](data)
	case ContentRevisionSheet:
		return decode[RevisionSheetPayload](data)
	case ContentMockPaper:
		return decode[MockPaperPayload](data)
	}
	return nil, fmt.Errorf("unknown content type %q", t)
}

func decode[T Payload](data []byte) (Payload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", p.Kind(), err)
	}
	return p, nil
}

// decodeInto decodes raw into the variant for t, preserving a nil payload.
func decodeInto(t ContentType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return DecodePayload(t, raw)
}

// BlueprintUnit is the estimated weight of one syllabus unit.
type BlueprintUnit struct {
	Name            string   `json:"name"`
	Weightage       float64  `json:"weightage"`
	Difficulty      string   `json:"difficulty"`
	Frequency       int      `json:"frequency"`
	ImportantTopics []string `json:"importantTopics"`
}

// Blueprint is an AI-estimated exam topic weightage breakdown.
type Blueprint struct {
	Units []BlueprintUnit `json:"units"`
	Raw   string          `json:"rawResponse,omitempty"` // set when the reply was not valid JSON
}

// PlanDay is one day of a revision plan.
type PlanDay struct {
	Date   string   `json:"date"`
	Topics []string `json:"topics"`
	Tasks  []string `json:"tasks"`
	Hours  float64  `json:"hours"`
}

// RevisionPlan is a day-wise schedule leading up to an exam.
type RevisionPlan struct {
	Days         []PlanDay `json:"days"`
	BufferDays   int       `json:"bufferDays"`
	MockTestDays []string  `json:"mockTestDays"`
	Raw          string    `json:"rawResponse,omitempty"`
}

// GeneratedContent is an AI-generated study artifact.
type GeneratedContent struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	SubjectID     string          `json:"subjectId"`
	Type          ContentType     `json:"type"`
	Title         string          `json:"title"`
	Topic         string          `json:"topic"`
	Content       Payload         `json:"content"`
	StyleID       string          `json:"styleProfileId,omitempty"`
	ContextUsed   []string        `json:"contextUsed"`
	AttachedFiles []string        `json:"attachedFiles"`
	Metadata      ContentMetadata `json:"metadata"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// UnmarshalJSON decodes the content payload according to Type.
func (g *GeneratedContent) UnmarshalJSON(data []byte) error {
	type alias GeneratedContent
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p, err := decodeInto(g.Type, aux.Content)
	if err != nil {
		return err
	}
	g.Content = p
	return nil
}

// CommunityPost is generated content shared with other students.
type CommunityPost struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Author        *Author      `json:"user,omitempty"`
	ContentID     string       `json:"contentId,omitempty"`
	Type          ContentType  `json:"type"`
	Title         string       `json:"title"`
	Content       Payload      `json:"content,omitempty"`
	Metadata      PostMetadata `json:"metadata"`
	Upvotes       int          `json:"upvotes"`
	Downvotes     int          `json:"downvotes"`
	ViewCount     int          `json:"viewCount"`
	Status        PostStatus   `json:"status"`
	ReportedCount int          `json:"reportedCount"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// UnmarshalJSON decodes the content payload according to Type.
func (p *CommunityPost) UnmarshalJSON(data []byte) error {
	type alias CommunityPost
	aux := struct {
		*alias
		Content json.RawMessage `json:"content"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	payload, err := decodeInto(p.Type, aux.Content)
	if err != nil {
		return err
	}
	p.Content = payload
	return nil
}
