// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package summarize generates natural-language summaries of code entities
// through an OpenAI-compatible chat completions API. It runs strictly
// outside graph construction: summaries enrich stored documents and search
// output, never the graph itself.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Wire Types
// =============================================================================

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client
// =============================================================================

// ErrRateLimited indicates the API kept returning 429 across all retries.
var ErrRateLimited = errors.New("summarization rate limited")

const (
	// defaultMaxRetries bounds attempts per request.
	defaultMaxRetries = 5

	// defaultBackoffBase is the first retry delay; each retry multiplies
	// it by 1.5 plus jitter.
	defaultBackoffBase = 1 * time.Second

	summaryTemperature float32 = 0.3
	summaryMaxTokens           = 100
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxRetries sets the retry cap for rate-limited requests.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoffBase sets the initial retry delay.
func WithBackoffBase(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client calls an OpenAI-compatible chat completions endpoint using raw
// net/http.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	maxRetries  int
	backoffBase time.Duration
}

// NewClient creates a Client with explicit configuration.
func NewClient(apiKey, model, baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromEnv creates a Client from SUMMARY_API_KEY, SUMMARY_MODEL,
// and SUMMARY_BASE_URL, falling back to the OPENAI_* equivalents.
//
// Outputs:
//   - *Client: The configured client.
//   - error: Non-nil if no API key is present in the environment.
func NewClientFromEnv(opts ...ClientOption) (*Client, error) {
	apiKey := os.Getenv("SUMMARY_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Warn("summary API key is empty; summarization disabled")
		return nil, fmt.Errorf("summarize: API key is missing (SUMMARY_API_KEY or OPENAI_API_KEY)")
	}

	model := os.Getenv("SUMMARY_MODEL")
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("SUMMARY_MODEL not set, defaulting to gpt-4o-mini")
	}

	baseURL := os.Getenv("SUMMARY_BASE_URL")

	slog.Info("initializing summarization client", slog.String("model", model))
	return NewClient(apiKey, model, baseURL, opts...), nil
}

// Summarize produces a short summary of one code entity's docstring or
// source excerpt.
//
// Inputs:
//   - ctx: Context for cancellation and timeout.
//   - text: The docstring or code excerpt to summarize.
//   - maxWords: Word budget stated in the system prompt.
//
// Outputs:
//   - string: The summary text.
//   - error: ErrRateLimited after exhausting retries, or the request error.
func (c *Client) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	system := fmt.Sprintf(
		"You are a code documentation assistant. Provide a concise summary of the function in %d words or less.",
		maxWords)
	return c.chat(ctx, system, text)
}

// Explain produces a natural-language explanation of search results.
func (c *Client) Explain(ctx context.Context, query, resultsText string) (string, error) {
	system := "You are a code search assistant. Explain how the following code entities relate to the user's query. Be concise and concrete."
	prompt := fmt.Sprintf("Query: %s\n\nResults:\n%s", query, resultsText)
	return c.chat(ctx, system, prompt)
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	temperature := summaryTemperature
	maxTokens := summaryMaxTokens
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("summarize: marshaling request: %w", err)
	}

	delay := c.backoffBase
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, status, err := c.post(ctx, reqBody)
		if err == nil {
			return result, nil
		}
		retryable := status == http.StatusTooManyRequests || status >= 500
		if !retryable || attempt == c.maxRetries {
			if status == http.StatusTooManyRequests {
				return "", fmt.Errorf("%w after %d attempts: %v", ErrRateLimited, attempt, err)
			}
			return "", err
		}

		var jitter time.Duration
		if half := int64(delay) / 2; half > 0 {
			jitter = time.Duration(rand.Int63n(half))
		}
		slog.Warn("summarization request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("status", status),
			slog.Duration("delay", delay+jitter))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay = delay * 3 / 2
	}
	return "", fmt.Errorf("summarize: retries exhausted")
}

// post sends one chat request. It returns the response text, the HTTP
// status, and an error for any non-2xx or malformed response.
func (c *Client) post(ctx context.Context, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("summarize: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("summarize: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("summarize: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("summarize: API returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", resp.StatusCode, fmt.Errorf("summarize: decoding response: %w", err)
	}
	if parsed.Error != nil {
		return "", resp.StatusCode, fmt.Errorf("summarize: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", resp.StatusCode, fmt.Errorf("summarize: response contained no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
