// Package stats derives progress figures from quiz attempts and study sessions.
package stats

import (
	"math"
	"time"

	"github.com/uniprep/copilot/internal/model"
)

// MaxStreak bounds the number of days a streak walk looks back.
const MaxStreak = 365

// TopicStat is the quiz record for one topic.
type TopicStat struct {
	Topic    string  `json:"topic"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// QuizSummary aggregates a set of quiz attempts.
type QuizSummary struct {
	Total    int         `json:"total"`
	Correct  int         `json:"correct"`
	Accuracy float64     `json:"accuracy"` // percent, two decimals
	Topics   []TopicStat `json:"topicBreakdown"`
}

// Summarize computes overall and per-topic accuracy. Topics appear in the
// order they are first seen in attempts.
func Summarize(attempts []model.QuizAttempt) QuizSummary {
	s := QuizSummary{Topics: []TopicStat{}}
	index := make(map[string]int)
	for _, a := range attempts {
		s.Total++
		i, ok := index[a.Topic]
		if !ok {
			i = len(s.Topics)
			index[a.Topic] = i
			s.Topics = append(s.Topics, TopicStat{Topic: a.Topic})
		}
		s.Topics[i].Total++
		if a.IsCorrect {
			s.Correct++
			s.Topics[i].Correct++
		}
	}
	s.Accuracy = Round2(percent(s.Correct, s.Total))
	for i := range s.Topics {
		s.Topics[i].Accuracy = percent(s.Topics[i].Correct, s.Topics[i].Total)
	}
	return s
}

// Streak counts consecutive study days ending today, or ending yesterday
// when nothing was studied yet today. Days are UTC calendar dates.
func Streak(sessions []model.Session, now time.Time) int {
	days := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		days[dateKey(s.StartTime)] = true
	}

	day := now.UTC()
	if !days[dateKey(day)] {
		day = day.AddDate(0, 0, -1)
		if !days[dateKey(day)] {
			return 0
		}
	}

	streak := 0
	for streak < MaxStreak && days[dateKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// StudyHours sums session durations in hours, rounded to two decimals.
func StudyHours(sessions []model.Session) float64 {
	var ms int64
	for _, s := range sessions {
		ms += s.DurationMs
	}
	return Round2(float64(ms) / float64(time.Hour/time.Millisecond))
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
