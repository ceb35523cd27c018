// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vector indexes stored graph documents into Weaviate and serves
// semantic search over them. Embeddings come from a local Ollama instance;
// Weaviate runs with vectorizer "none" and receives the vectors directly.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// ollamaEmbedReq is the Ollama /api/embed request body.
type ollamaEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaEmbedResp is the Ollama /api/embed response body.
type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

const (
	defaultEmbedURL   = "http://localhost:11434/api/embed"
	defaultEmbedModel = "nomic-embed-text"

	// embedTimeout bounds one embedding call against local Ollama.
	embedTimeout = 10 * time.Second
)

// Embedder produces unit-normalized embedding vectors via Ollama.
//
// Thread Safety: Safe for concurrent use.
type Embedder struct {
	url    string
	model  string
	client *http.Client
}

// NewEmbedder creates an Embedder. Empty arguments fall back to the
// EMBEDDING_SERVICE_URL and EMBEDDING_MODEL environment variables, then to
// local Ollama defaults.
func NewEmbedder(url, model string) *Embedder {
	if url == "" {
		url = os.Getenv("EMBEDDING_SERVICE_URL")
	}
	if url == "" {
		url = defaultEmbedURL
	}
	if model == "" {
		model = os.Getenv("EMBEDDING_MODEL")
	}
	if model == "" {
		model = defaultEmbedModel
	}
	return &Embedder{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: embedTimeout},
	}
}

// Embed returns the unit-normalized embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedReq{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed: Ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("embed: decoding response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed: Ollama returned no embeddings")
	}

	vec := parsed.Embeddings[0]
	norm := l2Norm(vec)
	if norm == 0 {
		return nil, fmt.Errorf("embed: zero-norm embedding")
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v / float32(norm)
	}
	return normalized, nil
}

// l2Norm returns the Euclidean norm of v.
func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine similarity of two vectors. For
// unit-normalized inputs this is their dot product.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := l2Norm(a), l2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
