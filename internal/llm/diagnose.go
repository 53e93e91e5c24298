package llm

import (
	"context"
	"errors"
	"strings"
)

// MinKeyLength is the shortest key the diagnostics accept as plausible.
const MinKeyLength = 50

// KeyInfo describes the shape of the configured key without revealing it.
type KeyInfo struct {
	Exists        bool   `json:"keyExists"`
	Length        int    `json:"keyLength"`
	Prefix        string `json:"keyPrefix"`
	Suffix        string `json:"keySuffix,omitempty"`
	HasSpaces     bool   `json:"hasSpaces"`
	HasQuotes     bool   `json:"hasQuotes"`
	CorrectPrefix bool   `json:"startsWithCorrectPrefix"`
}

// Diagnosis is the outcome of an API key check.
type Diagnosis struct {
	Valid      bool    `json:"valid"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	StatusCode int     `json:"statusCode,omitempty"`
	Detail     string  `json:"detailedError,omitempty"`
	Key        KeyInfo `json:"diagnostics"`
}

// Inspect reports the shape of key.
func Inspect(key string) KeyInfo {
	if key == "" {
		return KeyInfo{Prefix: "none"}
	}
	r := []rune(key)
	info := KeyInfo{
		Exists:        true,
		Length:        len(r),
		Prefix:        string(r[:min(10, len(r))]),
		HasSpaces:     strings.Contains(key, " "),
		HasQuotes:     strings.ContainsAny(key, `"'`),
		CorrectPrefix: strings.HasPrefix(key, "sk-or-v1-") || strings.HasPrefix(key, "sk-"),
	}
	info.Suffix = string(r[max(0, len(r)-4):])
	return info
}

// Diagnose checks the configured key locally and then with a short live call.
func (c *Client) Diagnose(ctx context.Context) Diagnosis {
	d := Diagnosis{Key: Inspect(c.cfg.APIKey)}
	switch {
	case !d.Key.Exists:
		d.Error = "API key not configured"
		return d
	case d.Key.Length < MinKeyLength:
		d.Error = "API key is too short. OpenRouter keys are typically 100+ characters long."
		return d
	case d.Key.HasSpaces:
		d.Error = "API key contains spaces. Remove all spaces from the key."
		return d
	case d.Key.HasQuotes:
		d.Error = "API key contains quotes. Remove quotes from your environment file."
		return d
	case !d.Key.CorrectPrefix:
		d.Error = `API key format looks incorrect. OpenRouter keys start with "sk-or-v1-" or "sk-"`
		return d
	}

	_, err := c.Complete(ctx, Request{
		System:    "You are a connectivity check.",
		Prompt:    "Say 'test' if you can read this.",
		MaxTokens: 10,
	})
	if err == nil {
		d.Valid = true
		d.Message = "API key is valid and working!"
		return d
	}

	d.Error = err.Error()
	var lerr *Error
	if errors.As(err, &lerr) {
		d.StatusCode = upstreamStatus(lerr)
		if lerr.Err != nil {
			d.Detail = lerr.Err.Error()
		}
	}
	return d
}

// upstreamStatus recovers the provider's own status code from a classified error.
func upstreamStatus(e *Error) int {
	switch {
	case errors.Is(e, ErrUnauthorized):
		return 401
	case errors.Is(e, ErrInsufficientCredits):
		return 402
	case errors.Is(e, ErrRateLimited):
		return 429
	}
	return 0
}
