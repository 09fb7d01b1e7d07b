package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/ailink/driver"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "mixtral-8x7b-32768", req.Model)
		require.Len(t, req.Messages, 2)
		require.NotNil(t, req.Temperature)
		require.InDelta(t, 0.7, *req.Temperature, 0.001)
		require.NotNil(t, req.MaxTokens)
		require.Equal(t, 1024, *req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Diversify across sectors."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "mixtral-8x7b-32768",
		Messages: []driver.Message{
			{Role: "system", Content: "You are a financial advisor."},
			{Role: "user", Content: "How should I invest?"},
		},
		Temperature: floatPtr(0.7),
		MaxTokens:   intPtr(1024),
	})
	require.NoError(t, err)
	require.Equal(t, "Diversify across sectors.", resp.Content)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 52, resp.Usage.TotalTokens)
}

func TestCompleteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "mixtral-8x7b-32768",
		Messages: []driver.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	var provErr *driver.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "groq", provErr.Provider)
	require.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
}

func TestCompleteMissingAPIKeyMakesNoCalls(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.Complete(context.Background(), &driver.Request{
		Model:    "mixtral-8x7b-32768",
		Messages: []driver.Message{{Role: "user", Content: "hi"}},
	})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Equal(t, int64(0), calls.Load())
}

func TestCompleteRejectsEmptyRequest(t *testing.T) {
	client := NewClient("", "key")

	_, err := client.Complete(context.Background(), &driver.Request{Messages: []driver.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)

	_, err = client.Complete(context.Background(), &driver.Request{Model: "mixtral-8x7b-32768"})
	require.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("", "key")
	require.Equal(t, defaultBaseURL, client.BaseURL)
	require.Equal(t, "groq", client.Name())
}
