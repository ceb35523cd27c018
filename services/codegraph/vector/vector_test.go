// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vector

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/codegraph/services/codegraph/docstring"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
)

func embedServer(t *testing.T, vec []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Model)
		assert.NotEmpty(t, req.Input)
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embeddings: [][]float32{vec}})
	}))
}

func TestEmbed(t *testing.T) {
	t.Run("returns unit normalized vector", func(t *testing.T) {
		srv := embedServer(t, []float32{3, 4})
		defer srv.Close()

		e := NewEmbedder(srv.URL, "test-model")
		vec, err := e.Embed(context.Background(), "hello")
		require.NoError(t, err)
		require.Len(t, vec, 2)

		norm := math.Sqrt(float64(vec[0]*vec[0] + vec[1]*vec[1]))
		assert.InDelta(t, 1.0, norm, 1e-6)
		assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		e := NewEmbedder(srv.URL, "test-model")
		_, err := e.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})

	t.Run("no embeddings in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ollamaEmbedResp{})
		}))
		defer srv.Close()

		e := NewEmbedder(srv.URL, "test-model")
		_, err := e.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})

	t.Run("zero vector rejected", func(t *testing.T) {
		srv := embedServer(t, []float32{0, 0, 0})
		defer srv.Close()

		e := NewEmbedder(srv.URL, "test-model")
		_, err := e.Embed(context.Background(), "hello")
		assert.Error(t, err)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float64(0), CosineSimilarity([]float32{1}, []float32{1, 2}))
}

func TestNodeText(t *testing.T) {
	t.Run("bare node", func(t *testing.T) {
		n := &storage.NodeDocument{Name: "process", Type: "function"}
		assert.Equal(t, "Node: process (Type: function)", NodeText(n))
	})

	t.Run("with summary and docstring sections", func(t *testing.T) {
		n := &storage.NodeDocument{
			Name:        "process",
			Type:        "function",
			Description: "Processes raw records.",
			DocstringData: &docstring.Sections{
				Parameters: map[string]string{"data": "input rows", "batch": "batch size"},
				Returns:    "cleaned rows",
			},
		}
		text := NodeText(n)
		assert.Contains(t, text, "Summary: Processes raw records.")
		assert.Contains(t, text, "Parameters: batch, data")
		assert.Contains(t, text, "Returns: cleaned rows")
	})
}

func TestEdgeText(t *testing.T) {
	e := &storage.EdgeDocument{Source: "main.py", Target: "process", Relation: "contains"}
	assert.Equal(t, "Edge: main.py -> process (Relation: contains)", EdgeText(e))
}

func TestDeterministicUUID(t *testing.T) {
	a := deterministicUUID("g1_process")
	b := deterministicUUID("g1_process")
	c := deterministicUUID("g2_process")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, string(a), 36)
}

func TestParseHits(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			ClassNode: []interface{}{
				map[string]interface{}{
					"graph_id":  "g1",
					"project":   "demo",
					"name":      "process",
					"node_type": "function",
					"content":   "Node: process (Type: function)",
					"_additional": map[string]interface{}{
						"certainty": 0.91,
					},
				},
			},
		},
	}

	hits := parseHits(data, ClassNode)
	require.Len(t, hits, 1)
	assert.Equal(t, "node", hits[0].Kind)
	assert.Equal(t, "g1", hits[0].GraphID)
	assert.Equal(t, "process", hits[0].Name)
	assert.InDelta(t, 0.91, hits[0].Certainty, 1e-9)

	t.Run("missing class yields no hits", func(t *testing.T) {
		assert.Empty(t, parseHits(data, ClassEdge))
	})

	t.Run("malformed payload yields no hits", func(t *testing.T) {
		assert.Empty(t, parseHits(map[string]models.JSONObject{"Get": "nope"}, ClassNode))
	})
}
