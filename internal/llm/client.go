package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 60 * time.Second

const systemPrompt = "You are an academic assistant. Always respond with valid JSON."

// Config configures the completion client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Stream  bool   // use the streamed delta form
	AppURL  string // sent as HTTP-Referer
	AppName string // sent as X-Title
}

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api *openai.Client
	cfg Config
	now func() time.Time
}

// New creates a new LLM client. The API key is trimmed of surrounding whitespace.
func New(cfg Config) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.AppName == "" {
		cfg.AppName = "UniPrep Copilot"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: cfg.AppURL,
			title:   cfg.AppName,
		},
	}
	return &Client{
		api: openai.NewClientWithConfig(config),
		cfg: cfg,
		now: time.Now,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends one system and one user message and returns the reply text.
// Errors are *Error values classified by upstream status.
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	if !c.Configured() {
		return "", notConfigured()
	}
	if r.System == "" {
		r.System = systemPrompt
	}
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: r.System},
			{Role: openai.ChatMessageRoleUser, Content: r.Prompt},
		},
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}

	start := time.Now()
	var (
		raw string
		err error
	)
	if c.cfg.Stream {
		raw, err = c.completeStream(ctx, req)
	} else {
		raw, err = c.completeOnce(ctx, req)
	}
	if err != nil {
		cerr := classify(err)
		slog.Warn("LLM request failed", "model", c.cfg.Model, "error", err, "duration", time.Since(start))
		return "", cerr
	}
	slog.Debug("LLM response", "model", c.cfg.Model, "chars", len(raw), "duration", time.Since(start))
	return raw, nil
}

func (c *Client) completeOnce(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) completeStream(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read completion stream: %w", err)
		}
		for _, ch := range resp.Choices {
			sb.WriteString(ch.Delta.Content)
		}
	}
	if sb.Len() == 0 {
		return "", errNoChoices
	}
	return sb.String(), nil
}

// headerTransport adds the attribution headers OpenRouter expects.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	r.Header.Set("X-Title", t.title)
	return t.base.RoundTrip(r)
}
