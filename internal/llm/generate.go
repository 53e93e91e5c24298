package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/uniprep/copilot/internal/llm/prompts"
	"github.com/uniprep/copilot/internal/model"
)

// Defaults applied when a request leaves a parameter unset.
const (
	DefaultDepth            = "medium"
	DefaultWordCount        = 1000
	DefaultSlideCount       = 10
	DefaultPresentationType = "seminar"
	DefaultHoursPerDay      = 3.0
	DefaultShortQuestions   = 5
	DefaultLongQuestions    = 3

	maxTokensCap = 4000
)

// DefaultReportSections are the sections a report gets when none are requested.
var DefaultReportSections = []string{"Abstract", "Introduction", "Methodology", "Analysis", "Conclusion", "References"}

// GenerateNotes writes structured study notes on a topic.
func (c *Client) GenerateNotes(ctx context.Context, in prompts.Input, p prompts.NotesData) (Result[model.NotesPayload], error) {
	if p.Depth == "" {
		p.Depth = DefaultDepth
	}
	maxTokens := 3000
	if in.Style.MaxWordCount > 0 {
		maxTokens = min(in.Style.MaxWordCount*2, maxTokensCap)
	}
	return generate(ctx, c, prompts.Notes, in, p, 0.7, maxTokens, func(raw string) model.NotesPayload {
		return model.NotesPayload{Sections: []model.Section{{Title: "Generated Content", Content: raw}}}
	})
}

// GenerateReport writes an academic report.
func (c *Client) GenerateReport(ctx context.Context, in prompts.Input, p prompts.ReportData) (Result[model.ReportPayload], error) {
	if p.WordCount <= 0 {
		p.WordCount = DefaultWordCount
	}
	if len(p.Sections) == 0 {
		p.Sections = DefaultReportSections
	}
	return generate(ctx, c, prompts.Report, in, p, 0.7, min(p.WordCount*2, maxTokensCap), func(raw string) model.ReportPayload {
		return model.ReportPayload{
			Sections:   []model.Section{{Title: "Report", Content: raw}},
			References: []string{},
		}
	})
}

// GeneratePPT writes presentation slides.
func (c *Client) GeneratePPT(ctx context.Context, in prompts.Input, p prompts.PPTData) (Result[model.PPTPayload], error) {
	if p.SlideCount <= 0 {
		p.SlideCount = DefaultSlideCount
	}
	if p.PresentationType == "" {
		p.PresentationType = DefaultPresentationType
	}
	return generate(ctx, c, prompts.PPT, in, p, 0.7, min(p.SlideCount*200, maxTokensCap), func(raw string) model.PPTPayload {
		return model.PPTPayload{Slides: []model.Slide{{Title: p.Topic, Bullets: []string{}, SpeakerNotes: raw}}}
	})
}

// GenerateBlueprint estimates unit weightage from syllabus and past papers.
// The style of in is replaced by the fixed exam style.
func (c *Client) GenerateBlueprint(ctx context.Context, in prompts.Input) (Result[model.Blueprint], error) {
	in.Style = model.ExamStyle()
	return generate(ctx, c, prompts.Blueprint, in, nil, 0.5, 2000, func(raw string) model.Blueprint {
		return model.Blueprint{Units: []model.BlueprintUnit{}, Raw: raw}
	})
}

// GenerateRevisionPlan schedules revision up to examDate from a blueprint.
func (c *Client) GenerateRevisionPlan(ctx context.Context, in prompts.Input, examDate time.Time, hoursPerDay float64, bp model.Blueprint) (Result[model.RevisionPlan], error) {
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultHoursPerDay
	}
	in.Style = model.ExamStyle()
	p := prompts.PlannerData{
		ExamDate:    examDate.Format(time.DateOnly),
		HoursPerDay: hoursPerDay,
		Today:       c.now().UTC().Format(time.DateOnly),
		Blueprint:   prompts.IndentJSON(bp),
	}
	return generate(ctx, c, prompts.Planner, in, p, 0.7, 3000, func(raw string) model.RevisionPlan {
		return model.RevisionPlan{Days: []model.PlanDay{}, MockTestDays: []string{}, Raw: raw}
	})
}

// GenerateRapidSheets writes a condensed revision sheet for topics.
func (c *Client) GenerateRapidSheets(ctx context.Context, in prompts.Input, topics []string) (Result[model.RevisionSheetPayload], error) {
	p := prompts.RapidSheetsData{Topics: topics}
	return generate(ctx, c, prompts.RapidSheets, in, p, 0.5, 2000, func(raw string) model.RevisionSheetPayload {
		return model.RevisionSheetPayload{
			KeyPoints:   []string{raw},
			Formulae:    []string{},
			Definitions: []model.Definition{},
		}
	})
}

// GenerateMockPaper sets a mock exam with outline answers.
func (c *Client) GenerateMockPaper(ctx context.Context, in prompts.Input, p prompts.MockPaperData) (Result[model.MockPaperPayload], error) {
	if p.ShortCount <= 0 {
		p.ShortCount = DefaultShortQuestions
	}
	if p.LongCount <= 0 {
		p.LongCount = DefaultLongQuestions
	}
	return generate(ctx, c, prompts.MockPaper, in, p, 0.7, maxTokensCap, func(raw string) model.MockPaperPayload {
		return model.MockPaperPayload{Questions: []model.MockQuestion{{Type: "long", Question: "Generated Paper", Answer: raw}}}
	})
}

func generate[T any](ctx context.Context, c *Client, name string, in prompts.Input, op any, temperature float32, maxTokens int, fallback func(string) T) (Result[T], error) {
	prompt, err := prompts.Build(name, in, op)
	if err != nil {
		return Result[T]{}, fmt.Errorf("build %s prompt: %w", name, err)
	}
	raw, err := c.Complete(ctx, Request{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return Result[T]{}, err
	}
	return Parse(raw, fallback), nil
}
