package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClient_GenerateJSON(t *testing.T) {
	var got groqChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k-123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-ratelimit-remaining-requests", "99")
		w.Header().Set("x-ratelimit-reset-tokens", "7.5s")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"riskLevel\":\"low\"}"}}]}`))
	}))
	defer srv.Close()

	cli, err := NewGroqClient("k-123", "test-model", srv.URL, time.Second)
	require.NoError(t, err)

	raw, err := cli.GenerateJSON(context.Background(), "PROMPT", map[string]any{"heartRateBpm": 65}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"riskLevel":"low"}`, string(raw))

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "PROMPT", got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, `"heartRateBpm": 65`)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])

	h, ok := cli.LastRateLimitHeaders()
	require.True(t, ok)
	assert.Equal(t, 99, h.RemainingRequests)
	assert.Equal(t, 7500*time.Millisecond, h.ResetTokens)
}

func TestGroqClient_StatusErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, permanent: true},
		{name: "context length", status: http.StatusBadRequest, body: `{"error":{"code":"context_length_exceeded"}}`, permanent: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`},
		{name: "server error", status: http.StatusBadGateway, body: `oops`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cli, err := NewGroqClient("k", "m", srv.URL, time.Second)
			require.NoError(t, err)
			_, err = cli.GenerateJSON(context.Background(), "p", nil, nil)
			require.Error(t, err)
			var perm *PermanentError
			assert.Equal(t, tc.permanent, errors.As(err, &perm))
		})
	}
}

func TestGroqClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	cli, err := NewGroqClient("k", "m", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = cli.GenerateJSON(context.Background(), "p", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestGroqClient_RequiresKey(t *testing.T) {
	_, err := NewGroqClient(" ", "", "", 0)
	var perm *PermanentError
	assert.True(t, errors.As(err, &perm))
}

func TestParseRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-remaining-tokens", "17997")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")

	got, ok := parseRateLimitHeaders(h)
	require.True(t, ok)
	assert.Equal(t, 2, got.RetryAfterSeconds)
	assert.Equal(t, 17997, got.RemainingTokens)
	assert.Equal(t, 2*time.Minute+59*time.Second+560*time.Millisecond, got.ResetRequests)

	_, ok = parseRateLimitHeaders(http.Header{})
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("Groq", func(context.Context) (LLMClient, error) {
		return NewGroqClient("k", "m", "http://localhost", time.Second)
	}))
	require.Error(t, reg.Register("groq", func(context.Context) (LLMClient, error) { return nil, nil }))
	require.Error(t, reg.Register("", func(context.Context) (LLMClient, error) { return nil, nil }))

	cli, err := reg.Open(context.Background(), " GROQ ")
	require.NoError(t, err)
	assert.Equal(t, "Groq:m", cli.Name())

	_, err = reg.Open(context.Background(), "openai")
	assert.ErrorContains(t, err, "unknown provider")
	assert.Equal(t, []string{"groq"}, reg.Providers())
}
