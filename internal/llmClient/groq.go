package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible) and asks for JSON.
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http  *resty.Client
	model string

	mu      sync.RWMutex
	last    RateLimitHeaders
	hasLast bool
}

// NewGroqClient creates a Groq client. An empty baseURL selects the public endpoint.
func NewGroqClient(apiKey, model, baseURL string, timeout time.Duration) (*GroqClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, NewPermanentError(fmt.Errorf("groq: api key is required"))
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultGroqModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGroqBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &GroqClient{http: cli, model: model}, nil
}

func (g *GroqClient) Name() string { return "Groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model          string            `json:"model"`
	Messages       []groqMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateJSON sends the prompt as the system message and the input as the
// user message. Groq's json_object mode has no schema parameter, so the
// schema only reaches the model through the prompt text.
func (g *GroqClient) GenerateJSON(ctx context.Context, prompt string, input any, _ *Schema) (json.RawMessage, error) {
	body := groqChatReq{
		Model: g.model,
		Messages: []groqMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: "[INPUT JSON]\n" + marshalInput(input)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	var out groqChatResp
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, err
	}
	if h, ok := parseRateLimitHeaders(resp.Header()); ok {
		g.mu.Lock()
		g.last, g.hasLast = h, true
		g.mu.Unlock()
	}
	if resp.IsError() {
		raw := resp.Body()
		const max = 2048
		if len(raw) > max {
			raw = raw[:max]
		}
		err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status(), string(raw))
		switch {
		case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
			return nil, NewPermanentError(err)
		case resp.StatusCode() == http.StatusBadRequest && strings.Contains(string(raw), `"code":"context_length_exceeded"`):
			return nil, NewPermanentError(err)
		}
		return nil, err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(out.Choices[0].Message.Content), nil
}

// LastRateLimitHeaders returns the quota signals of the most recent response.
func (g *GroqClient) LastRateLimitHeaders() (RateLimitHeaders, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last, g.hasLast
}

// RateLimitHeaders represents normalized provider rate-limit signals.
type RateLimitHeaders struct {
	RetryAfterSeconds int
	RemainingRequests int
	RemainingTokens   int
	ResetRequests     time.Duration
	ResetTokens       time.Duration
}

// RateLimitHeaderAware is implemented by clients that expose provider quota headers.
type RateLimitHeaderAware interface {
	LastRateLimitHeaders() (RateLimitHeaders, bool)
}

func parseRateLimitHeaders(h http.Header) (RateLimitHeaders, bool) {
	var out RateLimitHeaders
	found := false
	if n, err := strconv.Atoi(strings.TrimSpace(h.Get("retry-after"))); err == nil {
		out.RetryAfterSeconds, found = n, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(h.Get("x-ratelimit-remaining-requests"))); err == nil {
		out.RemainingRequests, found = n, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(h.Get("x-ratelimit-remaining-tokens"))); err == nil {
		out.RemainingTokens, found = n, true
	}
	if d, err := time.ParseDuration(strings.TrimSpace(h.Get("x-ratelimit-reset-requests"))); err == nil {
		out.ResetRequests, found = d, true
	}
	if d, err := time.ParseDuration(strings.TrimSpace(h.Get("x-ratelimit-reset-tokens"))); err == nil {
		out.ResetTokens, found = d, true
	}
	return out, found
}
