package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/viant/agentvec/vector"
)

// DefaultModel is the sentence-transformer the collection schema is sized for.
const DefaultModel = "all-MiniLM-L6-v2"

// HTTPConfig configures an HTTP encoder.
type HTTPConfig struct {
	// URL is the base URL of a text-embeddings-inference compatible server.
	URL   string
	Model string
	Dim   int

	// Retries is the number of extra attempts after a transport error or a
	// 429/5xx response. Zero disables retrying.
	Retries uint64
	// Backoff is the first Fibonacci retry delay, 100ms when zero.
	Backoff time.Duration
	// Client defaults to a client with a 30s timeout.
	Client *http.Client
}

// HTTP embeds text with a remote sentence-transformer server speaking the
// text-embeddings-inference protocol (POST /embed).
type HTTP struct {
	url     string
	model   string
	dim     int
	retries uint64
	backoff time.Duration
	client  *http.Client
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// NewHTTP connects to the embedding server and verifies that it serves
// vectors of the configured dimension. Construction costs one embedding
// round trip; a failure is reported as ErrModelUnavailable.
func NewHTTP(ctx context.Context, cfg HTTPConfig) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, vector.NewError(vector.KindModelUnavailable, "encoder", "", fmt.Errorf("embedding server URL is empty"))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dim <= 0 {
		cfg.Dim = vector.Dimension
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	e := &HTTP{url: strings.TrimRight(cfg.URL, "/"), model: cfg.Model, dim: cfg.Dim,
		retries: cfg.Retries, backoff: cfg.Backoff, client: cfg.Client}
	if _, err := e.Encode(ctx, "ping"); err != nil {
		return nil, vector.NewError(vector.KindModelUnavailable, "encoder", "", err)
	}
	return e, nil
}

func (e *HTTP) Model() string { return e.model }

func (e *HTTP) Dim() int { return e.dim }

// Encode embeds a single text. The server truncates inputs longer than the
// model window.
func (e *HTTP) Encode(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: []string{text}, Normalize: true, Truncate: true})
	if err != nil {
		return nil, vector.NewError(vector.KindEmbedding, "encode", "", fmt.Errorf("failed to marshal request: %w", err))
	}
	var out [][]float32
	backoff := retry.WithMaxRetries(e.retries, retry.NewFibonacci(e.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err = e.post(ctx, body)
		return err
	})
	if err != nil {
		return nil, vector.NewError(vector.KindEmbedding, "encode", "", err)
	}
	if len(out) != 1 {
		return nil, vector.NewError(vector.KindEmbedding, "encode", "", fmt.Errorf("expected 1 embedding, got %d", len(out)))
	}
	if len(out[0]) != e.dim {
		return nil, vector.NewError(vector.KindEmbedding, "encode", "", fmt.Errorf("embedding dimension %d, want %d", len(out[0]), e.dim))
	}
	return out[0], nil
}

// post sends one /embed request. Transport errors and 429/5xx responses are
// marked retryable.
func (e *HTTP) post(ctx context.Context, body []byte) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		return nil, retry.RetryableError(fmt.Errorf("embedding request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("embedding server status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}
	var out [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
