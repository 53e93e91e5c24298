package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/uniprep/copilot/internal/model"
)

var now = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func sessionsOn(daysAgo ...int) []model.Session {
	var out []model.Session
	for _, d := range daysAgo {
		out = append(out, model.Session{StartTime: now.AddDate(0, 0, -d)})
	}
	return out
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name    string
		daysAgo []int
		want    int
	}{
		{"none", nil, 0},
		{"today only", []int{0}, 1},
		{"gap breaks the run", []int{0, 1, 2, 4}, 3},
		{"rooted at yesterday", []int{1, 2, 3}, 3},
		{"stale", []int{2, 3, 4}, 0},
		{"duplicates count once", []int{0, 0, 1, 1}, 2},
		{"unordered input", []int{2, 0, 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(sessionsOn(tt.daysAgo...), now))
		})
	}
}

func TestStreakCapped(t *testing.T) {
	var days []int
	for i := 0; i < 400; i++ {
		days = append(days, i)
	}
	assert.Equal(t, MaxStreak, Streak(sessionsOn(days...), now))
}

func TestStreakUsesUTCDates(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 01:00 IST on the 20th is still the 19th in UTC.
	s := []model.Session{{StartTime: time.Date(2026, 10, 20, 1, 0, 0, 0, ist)}}
	assert.Equal(t, 1, Streak(s, now))
}

func TestSummarize(t *testing.T) {
	attempts := []model.QuizAttempt{
		{Topic: "Paging", IsCorrect: true},
		{Topic: "Deadlock", IsCorrect: false},
		{Topic: "Paging", IsCorrect: false},
		{Topic: "Paging", IsCorrect: true},
		{Topic: "Deadlock", IsCorrect: true},
		{Topic: "Scheduling", IsCorrect: true},
	}
	s := Summarize(attempts)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 4, s.Correct)
	assert.Equal(t, 66.67, s.Accuracy)

	assert.Equal(t, []string{"Paging", "Deadlock", "Scheduling"}, []string{s.Topics[0].Topic, s.Topics[1].Topic, s.Topics[2].Topic})
	assert.Equal(t, 3, s.Topics[0].Total)
	assert.Equal(t, 2, s.Topics[0].Correct)
	assert.InDelta(t, 66.666, s.Topics[0].Accuracy, 0.01)
	assert.Equal(t, 50.0, s.Topics[1].Accuracy)
	assert.Equal(t, 100.0, s.Topics[2].Accuracy)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Accuracy)
	assert.NotNil(t, s.Topics)
}

func TestStudyHours(t *testing.T) {
	s := []model.Session{{DurationMs: 3600000}, {DurationMs: 1800000}, {DurationMs: 60000}}
	assert.Equal(t, 1.52, StudyHours(s))
	assert.Zero(t, StudyHours(nil))
}
