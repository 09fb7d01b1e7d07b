package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/config"
)

func testConfig(baseURL string, enabled bool) config.VectorConfig {
	return config.VectorConfig{
		Enabled:    enabled,
		BaseURL:    baseURL,
		Collection: "self_help_books",
		Retry: config.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			BackoffFactor:  2.0,
		},
	}
}

func TestQueryReturnsDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/collections/self_help_books/query", r.URL.Path)

		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"how to save money"}, req.QueryTexts)
		require.Equal(t, 3, req.NResults)

		_, _ = w.Write([]byte(`{"documents": [["Pay yourself first.", "Avoid lifestyle inflation.", "Automate savings."]]}`))
	}))
	defer server.Close()

	client := New(testConfig(server.URL, true))
	docs, err := client.Query(context.Background(), "how to save money", 3)
	require.NoError(t, err)
	require.Equal(t, []string{"Pay yourself first.", "Avoid lifestyle inflation.", "Automate savings."}, docs)
}

func TestQueryDisabled(t *testing.T) {
	client := New(testConfig("http://localhost:1", false))
	_, err := client.Query(context.Background(), "anything", 3)
	require.ErrorIs(t, err, ErrDisabled)
}

func TestQueryRetriesFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"documents": [["doc"]]}`))
	}))
	defer server.Close()

	client := New(testConfig(server.URL, true))
	client.retrier.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	docs, err := client.Query(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"doc"}, docs)
	require.Equal(t, int64(2), calls.Load())
}

func TestAddSendsDocumentsWithGeneratedIDs(t *testing.T) {
	var got addRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/collections/self_help_books/add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	client := New(testConfig(server.URL, true))
	err := client.Add(context.Background(), "book_insight", []string{"Spend less than you earn.", "Invest early."})
	require.NoError(t, err)

	require.Equal(t, []string{"book_insight_1", "book_insight_2"}, got.IDs)
	require.Len(t, got.Metadatas, 2)
	require.Equal(t, "book_insight", got.Metadatas[0]["source"])
}

func TestAddEmptyIsNoop(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := New(testConfig(server.URL, true))
	require.NoError(t, client.Add(context.Background(), "book_insight", nil))
	require.Equal(t, int64(0), calls.Load())
}
