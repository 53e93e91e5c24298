package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrNotConfigured indicates no API key is set.
	ErrNotConfigured = errors.New("llm api key not configured")

	// ErrUnauthorized indicates the provider rejected the API key.
	ErrUnauthorized = errors.New("llm authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("llm rate limit exceeded")

	// ErrInsufficientCredits indicates the account has no credits left.
	ErrInsufficientCredits = errors.New("llm credits exhausted")

	// ErrUnavailable indicates the provider could not be reached in time.
	ErrUnavailable = errors.New("llm service unavailable")

	// ErrUpstream covers any other provider failure.
	ErrUpstream = errors.New("llm upstream error")
)

var errNoChoices = errors.New("invalid response from LLM API: no choices")

// Error is a classified LLM failure. Kind is one of the sentinel errors
// above; Status is the HTTP status to answer the caller with.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusOf returns the HTTP status for err, or 500 if err is not an *Error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

func notConfigured() *Error {
	return &Error{
		Kind:    ErrNotConfigured,
		Status:  http.StatusInternalServerError,
		Message: "OpenRouter API key is not configured. Set OPENROUTER_API_KEY and get a key from https://openrouter.ai/keys",
	}
}

// classify maps a go-openai error onto an *Error.
func classify(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return fromStatus(reqErr.HTTPStatusCode, msg, err)
	}
	if errors.Is(err, errNoChoices) {
		return &Error{Kind: ErrUpstream, Status: http.StatusInternalServerError, Message: err.Error(), Err: err}
	}
	// Anything without an HTTP status never reached the provider.
	return &Error{
		Kind:    ErrUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: "Unable to connect to the LLM API. Check your internet connection and try again.",
		Err:     err,
	}
}

func fromStatus(status int, msg string, err error) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Kind: ErrUnauthorized, Status: http.StatusInternalServerError, Message: unauthorizedMessage(msg), Err: err}
	case http.StatusPaymentRequired:
		return &Error{
			Kind:    ErrInsufficientCredits,
			Status:  http.StatusPaymentRequired,
			Message: "Insufficient LLM credits. Add credits to your account at https://openrouter.ai/",
			Err:     err,
		}
	case http.StatusTooManyRequests:
		m := "LLM API rate limit exceeded. Please try again later or upgrade your plan."
		if isDailyLimit(msg) {
			m = msg
		}
		return &Error{Kind: ErrRateLimited, Status: http.StatusTooManyRequests, Message: m, Err: err}
	case http.StatusBadRequest:
		return &Error{Kind: ErrUpstream, Status: http.StatusInternalServerError, Message: "LLM API bad request: " + msg, Err: err}
	}
	return &Error{
		Kind:    ErrUpstream,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("LLM API error (%d): %s", status, msg),
		Err:     err,
	}
}

func isUserNotFound(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "user not found")
}

func isDailyLimit(msg string) bool {
	return strings.Contains(msg, "free-models-per-day")
}

func unauthorizedMessage(msg string) string {
	if isUserNotFound(msg) {
		return "The LLM API key is invalid or its account was deleted (\"User not found\"). " +
			"Create a new key at https://openrouter.ai/keys, set it as OPENROUTER_API_KEY " +
			"without quotes or surrounding spaces, and restart the server."
	}
	return "LLM API authentication failed. The key may be invalid or expired. " +
		"Check OPENROUTER_API_KEY at https://openrouter.ai/keys and restart the server after updating it."
}
