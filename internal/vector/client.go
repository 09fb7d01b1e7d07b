// Package vector implements the embedding vector store client used to pull
// book-insight context into advice prompts. The store is optional: callers
// treat a failed or disabled lookup as an empty result, never a hard error.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/metrics"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/resilience"
)

const operationName = "vector_query"

// ErrDisabled indicates the vector store is turned off in configuration.
var ErrDisabled = errors.New("vector store is disabled")

// Client queries a Chroma-compatible vector store over HTTP.
type Client struct {
	cfg        config.VectorConfig
	httpClient *http.Client
	retrier    *resilience.Retrier
}

// New builds a client from configuration.
func New(cfg config.VectorConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retrier: &resilience.Retrier{
			Policy: resilience.RetryPolicy{
				MaxRetries:     cfg.Retry.MaxRetries,
				InitialBackoff: cfg.Retry.InitialBackoff,
				Factor:         cfg.Retry.BackoffFactor,
			},
			Logger: observability.Logger(),
			OnRetry: func(attempt int, err error) {
				metrics.RecordRetry(operationName)
			},
		},
	}
}

// Enabled reports whether the store is configured for use.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled
}

type queryRequest struct {
	QueryTexts []string `json:"query_texts"`
	NResults   int      `json:"n_results"`
	Include    []string `json:"include"`
}

type queryResponse struct {
	Documents [][]string `json:"documents"`
}

type addRequest struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// Query returns up to n documents similar to text from the configured
// collection.
func (c *Client) Query(ctx context.Context, text string, n int) ([]string, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if n <= 0 {
		n = 3
	}

	payload := queryRequest{
		QueryTexts: []string{text},
		NResults:   n,
		Include:    []string{"documents", "metadatas", "distances"},
	}

	docs, err := resilience.Do(ctx, c.retrier, operationName, func(ctx context.Context) ([]string, error) {
		var parsed queryResponse
		if err := c.post(ctx, c.collectionPath("query"), payload, &parsed); err != nil {
			return nil, err
		}
		if len(parsed.Documents) == 0 {
			return nil, nil
		}
		return parsed.Documents[0], nil
	})
	if err != nil {
		metrics.RecordOperation(operationName, false)
		return nil, err
	}

	metrics.RecordOperation(operationName, true)
	return docs, nil
}

// Add stores documents under generated sequential IDs with a common source
// tag.
func (c *Client) Add(ctx context.Context, source string, documents []string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if len(documents) == 0 {
		return nil
	}

	payload := addRequest{}
	for i, doc := range documents {
		payload.IDs = append(payload.IDs, fmt.Sprintf("%s_%d", source, i+1))
		payload.Documents = append(payload.Documents, doc)
		payload.Metadatas = append(payload.Metadatas, map[string]any{"source": source})
	}

	_, err := resilience.Do(ctx, c.retrier, "vector_add", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.post(ctx, c.collectionPath("add"), payload, nil)
	})
	return err
}

func (c *Client) collectionPath(action string) string {
	return fmt.Sprintf("/api/v1/collections/%s/%s", c.cfg.Collection, action)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode vector request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build vector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector store request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read vector response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("vector store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode vector response: %w", err)
		}
	}
	return nil
}
