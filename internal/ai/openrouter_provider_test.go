package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"skillpick/internal/config"
	"skillpick/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterProviderJudge(t *testing.T) {
	var request chatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "```json\n{\"match_score\": 64}\n```"}},
			},
			"usage": map[string]int{"prompt_tokens": 30, "completion_tokens": 9, "total_tokens": 39},
		})
	}))
	defer server.Close()

	cfg := testOperationConfig()
	cfg.Provider = "openrouter"
	cfg.MaxRetries = intPtr(0)
	observer := &tokenObserver{}
	provider := NewOpenRouterProvider(cfg, server.URL, config.OperationResume, observer, errors.NewNopLogger())

	payload, err := provider.Judge(context.Background(), PromptSpec{
		Operation:    config.OperationResume,
		SystemPrompt: "You screen resumes.",
		UserPrompt:   "Score this resume.",
		Schema:       SchemaFor(config.OperationResume),
	})
	require.NoError(t, err)

	raw, err := ExtractJSON(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match_score": 64}`, string(raw))

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gemini-2.5-flash", request.Model)
	assert.Equal(t, "json_object", request.ResponseFormat["type"])
	require.Len(t, request.Messages, 2)
	assert.Equal(t, "system", request.Messages[0].Role)
	assert.Contains(t, request.Messages[1].Content, "Score this resume.")
	assert.Contains(t, request.Messages[1].Content, "match_score")
	assert.Equal(t, int64(39), observer.total)
}

func TestOpenRouterProviderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	cfg := testOperationConfig()
	cfg.MaxRetries = intPtr(1)
	provider := NewOpenRouterProvider(cfg, server.URL, config.OperationJD, nil, nil)
	provider.client.SetRetryWaitTime(0).SetRetryMaxWaitTime(0)

	payload, err := provider.Judge(context.Background(), PromptSpec{Operation: config.OperationJD, UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, payload.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenRouterProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testOperationConfig()
	cfg.MaxRetries = intPtr(0)
	provider := NewOpenRouterProvider(cfg, server.URL, config.OperationJD, nil, nil)

	_, err := provider.Judge(context.Background(), PromptSpec{Operation: config.OperationJD, UserPrompt: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeNetwork))
	assert.Contains(t, err.Error(), "401")
}

func TestOpenRouterSystemPromptFoldedWhenDisabled(t *testing.T) {
	cfg := testOperationConfig()
	cfg.UseSystemPrompts = boolPtr(false)
	provider := NewOpenRouterProvider(cfg, "", config.OperationJD, nil, nil)

	request := provider.buildRequest(PromptSpec{SystemPrompt: "sys", UserPrompt: "user"})
	require.Len(t, request.Messages, 1)
	assert.Equal(t, "sys\n\nuser", request.Messages[0].Content)
	assert.Equal(t, float32(0.2), *request.Temperature)
}
