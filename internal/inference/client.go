// Package inference talks to an Ollama-compatible generation endpoint and
// recovers structured evaluation payloads from its free-text output.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TransportError marks an inference call that stayed unsuccessful through
// every retry attempt. It carries the attempt count for telemetry.
type TransportError struct {
	Attempts int
	Last     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *TransportError) Unwrap() error { return e.Last }

// Options configures a Client. Values come from the configuration
// collaborator; there are no mutable package-level defaults.
type Options struct {
	Endpoint    string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// Client sends prompts to the generation endpoint with bounded synchronous
// retries. No state is retained between attempts.
type Client struct {
	httpClient *http.Client
	endpoint   string
	model      string
	timeout    time.Duration
	attempts   int
	backoff    time.Duration
	logger     *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		timeout:    opts.Timeout,
		attempts:   opts.MaxAttempts,
		backoff:    opts.Backoff,
		logger:     logger.With("component", "inference"),
	}
}

// Model returns the model identifier the client generates with.
func (c *Client) Model() string { return c.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt and returns the raw response text. A non-200
// status or transport error triggers a fixed-backoff retry; after the
// attempt budget is spent the call returns a *TransportError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", &TransportError{Attempts: attempt - 1, Last: ctx.Err()}
			case <-time.After(c.backoff):
			}
		}

		text, err := c.generateOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("inference attempt failed",
			"attempt", attempt,
			"max_attempts", c.attempts,
			"error", err)

		if errors.Is(err, context.Canceled) {
			return "", &TransportError{Attempts: attempt, Last: err}
		}
	}

	return "", &TransportError{Attempts: c.attempts, Last: lastErr}
}

func (c *Client) generateOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return gen.Response, nil
}
