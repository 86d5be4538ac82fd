package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/sentinel/internal/llm"
)

func textResponse(text string) map[string]any {
	return map[string]any{
		"model":       "claude-test-1",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 30, "output_tokens": 12},
	}
}

func TestGenerate_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Empty(t, req.System)
		assert.Equal(t, []Message{{Role: "user", Content: "hello"}}, req.Messages)
		assert.Equal(t, 1024, req.MaxTokens)

		json.NewEncoder(w).Encode(textResponse("world"))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", 0)
	c.SetBaseURL(server.URL)

	gen, err := c.Generate(context.Background(), "hello", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "world", gen.Text)
}

func TestGenerate_MapsHistoryAndUsage(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(textResponse("  Sure, I can help.  "))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", 512)
	c.SetBaseURL(server.URL)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}
	gen, err := c.Generate(context.Background(), "User: help", "CURRENT_PHASE: greeting", history)
	require.NoError(t, err)

	assert.Equal(t, "Sure, I can help.", gen.Text)
	assert.Equal(t, 42, gen.TokenCount)
	assert.Equal(t, "claude-test-1", gen.Model)

	assert.Equal(t, "CURRENT_PHASE: greeting", got.System)
	assert.Equal(t, 512, got.MaxTokens)
	assert.Equal(t, []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "User: help"},
	}, got.Messages)
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"message": "max_tokens is too large",
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", 0)
	c.SetBaseURL(server.URL)

	_, err := c.Generate(context.Background(), "hi", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
}

func TestGenerate_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}, "stop_reason": "end_turn"})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model", 0)
	c.SetBaseURL(server.URL)

	_, err := c.Generate(context.Background(), "p", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}
