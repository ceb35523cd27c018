// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// defaultConcurrency bounds in-flight summary requests.
	defaultConcurrency = 4

	// defaultMinInterval spaces out request starts across all workers.
	defaultMinInterval = 2 * time.Second

	// defaultMaxWords is the summary word budget.
	defaultMaxWords = 40
)

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithConcurrency sets the number of parallel summary requests.
func WithConcurrency(n int) SummarizerOption {
	return func(s *Summarizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMinInterval sets the minimum spacing between request starts.
func WithMinInterval(d time.Duration) SummarizerOption {
	return func(s *Summarizer) {
		if d >= 0 {
			s.minInterval = d
		}
	}
}

// WithMaxWords sets the per-summary word budget.
func WithMaxWords(n int) SummarizerOption {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxWords = n
		}
	}
}

// Summarizer drives batched summarization with bounded concurrency and
// inter-request spacing.
//
// Description:
//
//	A nil client is legal: every item then falls back to first-sentence
//	extraction, so graph storage still works with no API configured.
//	Per-item API failures also fall back rather than failing the batch.
//
// Thread Safety: Safe for concurrent use.
type Summarizer struct {
	client      *Client
	concurrency int
	minInterval time.Duration
	maxWords    int

	mu       sync.Mutex
	lastCall time.Time
}

// NewSummarizer creates a Summarizer. client may be nil to run in
// fallback-only mode.
func NewSummarizer(client *Client, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{
		client:      client,
		concurrency: defaultConcurrency,
		minInterval: defaultMinInterval,
		maxWords:    defaultMaxWords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeBatch summarizes every named docstring.
//
// Inputs:
//   - ctx: Context for cancellation.
//   - items: Function name to raw docstring.
//
// Outputs:
//   - map[string]string: Function name to summary. Always complete for the
//     input names; failed items carry their fallback summary.
//   - error: Only context cancellation aborts the batch.
func (s *Summarizer) SummarizeBatch(ctx context.Context, items map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	var outMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for name, doc := range items {
		g.Go(func() error {
			summary := s.summarizeOne(gctx, name, doc)
			outMu.Lock()
			out[name] = summary
			outMu.Unlock()
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summarize batch: %w", err)
	}
	return out, nil
}

func (s *Summarizer) summarizeOne(ctx context.Context, name, doc string) string {
	if s.client == nil {
		return FallbackSummary(doc)
	}
	if err := s.pace(ctx); err != nil {
		return FallbackSummary(doc)
	}

	summary, err := s.client.Summarize(ctx, doc, s.maxWords)
	if err != nil {
		slog.Warn("summarization failed, using fallback",
			slog.String("function", name),
			slog.String("error", err.Error()))
		return FallbackSummary(doc)
	}
	return summary
}

// ExplainHits asks the LLM to relate search results to the query.
// Returns "" when no client is configured or when there are no results.
func (s *Summarizer) ExplainHits(ctx context.Context, query string, results []string) string {
	if s.client == nil || len(results) == 0 {
		return ""
	}
	explanation, err := s.client.Explain(ctx, query, strings.Join(results, "\n"))
	if err != nil {
		slog.Warn("explanation failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return ""
	}
	return explanation
}

// pace blocks until minInterval has passed since the previous request
// start, across all workers.
func (s *Summarizer) pace(ctx context.Context) error {
	if s.minInterval == 0 {
		return nil
	}

	s.mu.Lock()
	now := time.Now()
	wait := s.minInterval - now.Sub(s.lastCall)
	if wait < 0 {
		wait = 0
	}
	s.lastCall = now.Add(wait)
	s.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// FallbackSummary derives a summary without the API: the first sentence of
// the docstring, clipped to one line.
func FallbackSummary(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "No description available."
	}
	if i := strings.IndexAny(doc, ".\n"); i >= 0 {
		doc = strings.TrimSpace(doc[:i+1])
	}
	return doc
}
