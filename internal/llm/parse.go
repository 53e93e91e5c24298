package llm

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Result is a parsed model reply. When the reply was not valid JSON,
// Value holds an operation-specific fallback built from Raw.
type Result[T any] struct {
	Value    T
	Raw      string
	Fallback bool
}

// Parse decodes raw into T after removing markdown code fences.
// It never fails: on a decode error it returns fallback(raw).
func Parse[T any](raw string, fallback func(raw string) T) Result[T] {
	cleaned := stripCodeFences(raw)
	var v T
	err := json.Unmarshal([]byte(cleaned), &v)
	if err != nil || cleaned == "null" {
		slog.Debug("LLM reply is not valid JSON, using fallback", "error", err)
		return Result[T]{Value: fallback(raw), Raw: raw, Fallback: true}
	}
	return Result[T]{Value: v, Raw: raw}
}

// stripCodeFences removes ```json and ``` fence markers and trims the text.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
