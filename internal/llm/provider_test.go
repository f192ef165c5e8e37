package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"label\":\"angry\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.Client(), srv.URL+"/v1/", "sk-test")
	resp, err := p.Complete(context.Background(), Request{
		Model:    "gpt-4o-mini",
		System:   "classify",
		Messages: []Message{{Role: "user", Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"label":"angry"}`, resp.Content)
}

func TestOpenAIProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http status", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`},
		{name: "api error", status: http.StatusOK, body: `{"error":{"message":"bad key"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(srv.Client(), srv.URL, "k")
			_, err := p.Complete(context.Background(), Request{Model: "m"})
			require.Error(t, err)
		})
	}
}

func TestClaudeProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))

		var body claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, claudeDefaultMaxTokens, body.MaxTokens)
		assert.Contains(t, body.System, "single JSON object")
		require.Len(t, body.Messages, 1)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"label\":"},{"type":"text","text":"\"neutral\"}"}]}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider(srv.Client(), srv.URL, "key")
	resp, err := p.Complete(context.Background(), Request{
		Model:    "claude-test",
		Messages: []Message{{Role: "system", Content: "dropped"}, {Role: "user", Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"label\":\n\"neutral\"}", resp.Content)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", OpenAIBaseURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(Config{Provider: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())

	_, err = NewProvider(Config{Provider: "llama"})
	require.Error(t, err)
}
