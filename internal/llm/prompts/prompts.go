package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/uniprep/copilot/internal/model"
)

// MaterialLimit is the number of characters kept from each material block.
const MaterialLimit = 2000

// Template names, one per generation operation.
const (
	Notes       = "notes"
	Report      = "report"
	PPT         = "ppt"
	Blueprint   = "blueprint"
	Planner     = "planner"
	RapidSheets = "rapid_sheets"
	MockPaper   = "mock_paper"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	loadOnce  sync.Once
	loadErr   error
	templates *template.Template
)

// Profile is the academic profile rendered into every prompt.
type Profile struct {
	University string
	Branch     string
	Semester   int
	Subject    string
}

// Material is the reference text sent to the model.
type Material struct {
	Syllabus string
	Notes    string
	PYQ      string
}

// Input is the data shared by all prompts.
type Input struct {
	Profile  Profile
	Style    model.AnswerStyle
	Material Material
}

// NotesData holds template data for study notes.
type NotesData struct {
	Topic  string
	Depth  string
	Custom string
}

// ReportData holds template data for reports.
type ReportData struct {
	Topic     string
	WordCount int
	Sections  []string
	Custom    string
}

// PPTData holds template data for presentations.
type PPTData struct {
	Topic            string
	SlideCount       int
	PresentationType string
	Custom           string
}

// PlannerData holds template data for revision plans.
type PlannerData struct {
	ExamDate    string
	HoursPerDay float64
	Today       string
	Blueprint   string
}

// RapidSheetsData holds template data for revision sheets.
type RapidSheetsData struct {
	Topics []string
}

// MockPaperData holds template data for mock papers.
type MockPaperData struct {
	ShortCount int
	LongCount  int
}

type promptData struct {
	Input
	Op any
}

// Load parses the embedded templates. It is safe to call repeatedly.
func Load() error {
	loadOnce.Do(func() {
		funcs := template.FuncMap{
			"join":     strings.Join,
			"truncate": func(s string) string { return Truncate(s, MaterialLimit) },
		}
		templates, loadErr = template.New("prompts").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
		if loadErr != nil {
			loadErr = fmt.Errorf("parse prompt templates: %w", loadErr)
		}
	})
	return loadErr
}

// Build renders the named prompt. op is the operation-specific data.
func Build(name string, in Input, op any) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl := templates.Lookup(name)
	if tmpl == nil || name == "preamble" {
		return "", errors.New("unknown prompt: " + name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Input: in, Op: op}); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

// Truncate keeps at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// MaterialFrom assembles reference material from a subject's contexts,
// which must be ordered oldest first. The first syllabus and the first
// past-paper entry win; all notes are joined by blank lines.
func MaterialFrom(contexts []model.Context) Material {
	var m Material
	var notes []string
	for _, c := range contexts {
		switch c.Type {
		case model.ContextSyllabus:
			if m.Syllabus == "" {
				m.Syllabus = c.Content
			}
		case model.ContextPYQ:
			if m.PYQ == "" {
				m.PYQ = c.Content
			}
		case model.ContextNotes:
			notes = append(notes, c.Content)
		}
	}
	m.Notes = strings.Join(notes, "\n\n")
	return m
}

// ProfileFrom builds the prompt profile of user for a subject name.
func ProfileFrom(u model.User, subject string) Profile {
	return Profile{
		University: u.University,
		Branch:     u.Branch,
		Semester:   u.Semester,
		Subject:    subject,
	}
}

// IndentJSON renders v for inclusion in a prompt.
func IndentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
