package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniprep/copilot/internal/model"
)

func testInput() Input {
	return Input{
		Profile: Profile{University: "Anna University", Branch: "CSE", Semester: 5, Subject: "Operating Systems"},
		Style:   model.DefaultStyle("u1"),
		Material: Material{
			Syllabus: "Unit 1: Processes. Unit 2: Memory.",
			Notes:    "Paging splits memory into frames.",
			PYQ:      "Explain thrashing.",
		},
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", MaterialLimit)
	assert.Equal(t, short, Truncate(short, MaterialLimit))

	long := strings.Repeat("b", MaterialLimit+500)
	assert.Len(t, Truncate(long, MaterialLimit), MaterialLimit)

	// counts characters, not bytes
	multi := strings.Repeat("ह", 10)
	assert.Equal(t, strings.Repeat("ह", 4), Truncate(multi, 4))
}

func TestBuildAllPrompts(t *testing.T) {
	in := testInput()
	ops := map[string]any{
		Notes:       NotesData{Topic: "Paging", Depth: "medium"},
		Report:      ReportData{Topic: "Scheduling", WordCount: 1500, Sections: []string{"Abstract", "Conclusion"}},
		PPT:         PPTData{Topic: "Deadlocks", SlideCount: 10, PresentationType: "seminar"},
		Blueprint:   nil,
		Planner:     PlannerData{ExamDate: "2026-12-01", HoursPerDay: 3, Today: "2026-11-01", Blueprint: "{}"},
		RapidSheets: RapidSheetsData{Topics: []string{"Paging", "Segmentation"}},
		MockPaper:   MockPaperData{ShortCount: 5, LongCount: 3},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			p, err := Build(name, in, op)
			require.NoError(t, err)
			assert.Contains(t, p, "Anna University")
			assert.Contains(t, p, "Operating Systems")
			assert.Contains(t, p, "Definition, Explanation, Key Points, Conclusion")
			assert.Contains(t, p, "Unit 1: Processes")
			assert.Contains(t, p, "Explain thrashing.")
			assert.Contains(t, p, "JSON only")
		})
	}
}

func TestBuildNotesIncludesTopicAndCustomPrompt(t *testing.T) {
	p, err := Build(Notes, testInput(), NotesData{Topic: "Paging", Depth: "detailed", Custom: "Add a diagram description."})
	require.NoError(t, err)
	assert.Contains(t, p, "topic: Paging")
	assert.Contains(t, p, "Depth: detailed")
	assert.Contains(t, p, "Add a diagram description.")
	assert.Contains(t, p, "about 500 words")
}

func TestBuildOmitsEmptyMaterial(t *testing.T) {
	in := testInput()
	in.Material = Material{}
	in.Style.Instructions = ""
	p, err := Build(Notes, in, NotesData{Topic: "Paging"})
	require.NoError(t, err)
	assert.NotContains(t, p, "Syllabus:")
	assert.NotContains(t, p, "Past year questions:")
	assert.NotContains(t, p, "Additional instructions")
	assert.NotContains(t, p, "Extra request")
}

func TestBuildTruncatesMaterial(t *testing.T) {
	in := testInput()
	in.Material.Syllabus = strings.Repeat("s", MaterialLimit) + "TAIL"
	p, err := Build(Notes, in, NotesData{Topic: "Paging"})
	require.NoError(t, err)
	assert.Contains(t, p, strings.Repeat("s", MaterialLimit))
	assert.NotContains(t, p, "TAIL")
}

func TestBuildUnknownPrompt(t *testing.T) {
	_, err := Build("essay", testInput(), nil)
	assert.Error(t, err)
	_, err = Build("preamble", testInput(), nil)
	assert.Error(t, err)
}

func TestMaterialFrom(t *testing.T) {
	now := time.Now()
	ctxs := []model.Context{
		{Type: model.ContextNotes, Content: "note one", CreatedAt: now},
		{Type: model.ContextSyllabus, Content: "first syllabus", CreatedAt: now},
		{Type: model.ContextPYQ, Content: "first pyq", CreatedAt: now},
		{Type: model.ContextSyllabus, Content: "second syllabus", CreatedAt: now},
		{Type: model.ContextReference, Content: "ignored", CreatedAt: now},
		{Type: model.ContextNotes, Content: "note two", CreatedAt: now},
		{Type: model.ContextPYQ, Content: "second pyq", CreatedAt: now},
	}
	m := MaterialFrom(ctxs)
	assert.Equal(t, "first syllabus", m.Syllabus)
	assert.Equal(t, "first pyq", m.PYQ)
	assert.Equal(t, "note one\n\nnote two", m.Notes)
}
