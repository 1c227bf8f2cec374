// Package provider wraps the embedding, rerank, and generation model
// services. They are black boxes with latency and failure modes; transient
// failures are retried here and terminal failures surface as errors the
// pipeline degrades on (never user-facing).
package provider

// #region imports
import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
)

// #endregion

// #region config

// Config holds the provider endpoint settings.
type Config struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	MaxRetries  uint64        `koanf:"max_retries"`
	BackoffBase time.Duration `koanf:"backoff_base"`
}

// DefaultConfig returns provider defaults for a local model gateway.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:8091",
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		BackoffBase: 100 * time.Millisecond,
	}
}

// #endregion config

// #region client

// Client talks to the model gateway over HTTP JSON.
type Client struct {
	http *resty.Client
	cfg  Config
}

// NewClient builds a configured client.
func NewClient(cfg Config) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		http.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{http: http, cfg: cfg}
}

// #endregion client

// #region retry

func (c *Client) backoff() retry.Backoff {
	b := retry.NewExponential(c.cfg.BackoffBase)
	b = retry.WithMaxDuration(5*time.Second, b)
	return retry.WithMaxRetries(c.cfg.MaxRetries, b)
}

// #endregion retry

// #region embed

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed turns text into a dense vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var out embedResponse
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(embedRequest{Text: text}).
			SetResult(&out).
			Post("/v1/embed")
		if err != nil {
			return retry.RetryableError(fmt.Errorf("embed call: %w", err))
		}
		if resp.StatusCode() >= 500 {
			return retry.RetryableError(fmt.Errorf("embed status %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return fmt.Errorf("embed status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed returned empty vector")
	}
	return out.Embedding, nil
}

// #endregion embed

// #region rerank

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank scores query/document pairs, cross-encoder style.
func (c *Client) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	var out rerankResponse
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(rerankRequest{Query: query, Documents: docs}).
			SetResult(&out).
			Post("/v1/rerank")
		if err != nil {
			return retry.RetryableError(fmt.Errorf("rerank call: %w", err))
		}
		if resp.StatusCode() >= 500 {
			return retry.RetryableError(fmt.Errorf("rerank status %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return fmt.Errorf("rerank status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Scores) != len(docs) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(out.Scores), len(docs))
	}
	return out.Scores, nil
}

// #endregion rerank

// #region generate

type generateRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Token string `json:"token"`
	Done  bool   `json:"done"`
}

// Generate streams completion tokens to fn, one call per token. Generation
// is not retried: a half-streamed answer cannot be safely replayed.
func (c *Client) Generate(ctx context.Context, prompt string, fn func(token string) error) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Prompt: prompt, Stream: true}).
		SetDoNotParseResponse(true).
		Post("/v1/generate")
	if err != nil {
		return fmt.Errorf("generate call: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("generate status %d", resp.StatusCode())
	}

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode generate chunk: %w", err)
		}
		if chunk.Done {
			return nil
		}
		if err := fn(chunk.Token); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read generate stream: %w", err)
	}
	return nil
}

// #endregion generate
