package model

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed presets/styles.yaml
var presetFS embed.FS

// StylePreset is a ready-made style profile users can copy.
type StylePreset struct {
	Name              string   `yaml:"name" json:"name"`
	Sections          []string `yaml:"sections" json:"sections"`
	Tone              Tone     `yaml:"tone" json:"tone"`
	MaxWordCount      int      `yaml:"maxWordCount" json:"maxWordCount"`
	ApproximateLength Length   `yaml:"approximateLength" json:"approximateLength"`
}

var (
	presetsOnce sync.Once
	presets     []StylePreset
	presetsErr  error
)

// StylePresets returns the built-in style presets.
func StylePresets() ([]StylePreset, error) {
	presetsOnce.Do(func() {
		data, err := presetFS.ReadFile("presets/styles.yaml")
		if err != nil {
			presetsErr = fmt.Errorf("read style presets: %w", err)
			return
		}
		if err := yaml.Unmarshal(data, &presets); err != nil {
			presetsErr = fmt.Errorf("parse style presets: %w", err)
			return
		}
		for _, p := range presets {
			if !p.Tone.Valid() {
				presetsErr = fmt.Errorf("style preset %q: unknown tone %q", p.Name, p.Tone)
				return
			}
		}
	})
	return presets, presetsErr
}

// DefaultStyle is the profile created for users who have none.
func DefaultStyle(userID string) AnswerStyle {
	return AnswerStyle{
		UserID:            userID,
		Name:              "Default Style",
		IsDefault:         true,
		Sections:          []string{"Definition", "Explanation", "Key Points", "Conclusion"},
		Tone:              ToneFormalExam,
		MaxWordCount:      500,
		ApproximateLength: LengthMedium,
	}
}

// ExamStyle is the fixed profile used for blueprint and revision planning.
func ExamStyle() AnswerStyle {
	return AnswerStyle{Sections: []string{}, Tone: ToneFormalExam}
}
