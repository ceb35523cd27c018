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
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/codegraph/services/codegraph/storage"
)

// Weaviate class names for indexed graph entities.
const (
	ClassNode = "CodeGraphNode"
	ClassEdge = "CodeGraphEdge"
)

// IndexConfig configures the vector index.
type IndexConfig struct {
	// URL is the Weaviate endpoint, e.g. "http://localhost:8080".
	URL string

	// Embedder produces the vectors. Required.
	Embedder *Embedder
}

// Index stores and searches graph entities in Weaviate.
//
// Description:
//
//	Both classes run with vectorizer "none"; every object is written with
//	an embedding computed by the configured Embedder. Object IDs are
//	deterministic UUIDs derived from the document-level entity IDs, so
//	re-indexing a graph overwrites rather than duplicates.
//
// Thread Safety: Safe for concurrent use.
type Index struct {
	client   *weaviate.Client
	embedder *Embedder
}

// NewIndex creates a vector index against the given Weaviate endpoint.
func NewIndex(cfg IndexConfig) (*Index, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("vector: embedder is required")
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8080"
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("vector: invalid Weaviate URL %q", cfg.URL)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "http"
	}

	client := weaviate.New(weaviate.Config{
		Host:   parsed.Host,
		Scheme: scheme,
	})

	return &Index{client: client, embedder: cfg.Embedder}, nil
}

// nodeClass and edgeClass define the stored schema.
func nodeClass() *models.Class {
	return &models.Class{
		Class:       ClassNode,
		Description: "A node of an extracted code graph.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "graph_id", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "project", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "name", DataType: []string{"text"}},
			{Name: "node_type", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "content", DataType: []string{"text"}},
		},
	}
}

func edgeClass() *models.Class {
	return &models.Class{
		Class:       ClassEdge,
		Description: "An edge of an extracted code graph.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "graph_id", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "project", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "source", DataType: []string{"text"}},
			{Name: "target", DataType: []string{"text"}},
			{Name: "relation", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "content", DataType: []string{"text"}},
		},
	}
}

// EnsureSchema creates the node and edge classes if they do not exist.
func (x *Index) EnsureSchema(ctx context.Context) error {
	for _, class := range []*models.Class{nodeClass(), edgeClass()} {
		_, err := x.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx)
		if err == nil {
			slog.Debug("schema already exists", slog.String("class", class.Class))
			continue
		}
		slog.Info("creating schema", slog.String("class", class.Class))
		if err := x.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("creating class %s: %w", class.Class, err)
		}
	}
	return nil
}

// NodeText renders the embedding text for a node document.
func NodeText(n *storage.NodeDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Node: %s (Type: %s)", n.Name, n.Type)
	if n.Description != "" {
		fmt.Fprintf(&sb, "\nSummary: %s", n.Description)
	}
	if n.DocstringData != nil {
		if len(n.DocstringData.Parameters) > 0 {
			names := make([]string, 0, len(n.DocstringData.Parameters))
			for name := range n.DocstringData.Parameters {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintf(&sb, "\nParameters: %s", strings.Join(names, ", "))
		}
		if n.DocstringData.Returns != "" {
			fmt.Fprintf(&sb, "\nReturns: %s", n.DocstringData.Returns)
		}
	}
	return sb.String()
}

// EdgeText renders the embedding text for an edge document.
func EdgeText(e *storage.EdgeDocument) string {
	return fmt.Sprintf("Edge: %s -> %s (Relation: %s)", e.Source, e.Target, e.Relation)
}

// deterministicUUID derives a stable object UUID from an entity ID.
func deterministicUUID(entityID string) strfmt.UUID {
	hash := sha256.Sum256([]byte(entityID))
	id, _ := uuid.FromBytes(hash[:16])
	return strfmt.UUID(id.String())
}

// IndexGraph embeds and writes every node and edge of the document.
//
// Outputs:
//   - int: Objects successfully written.
//   - error: Non-nil if embedding or the batch write fails outright;
//     per-object failures are logged and counted out.
func (x *Index) IndexGraph(ctx context.Context, doc *storage.GraphDocument) (int, error) {
	objects := make([]*models.Object, 0, len(doc.Nodes)+len(doc.Edges))

	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		vec, err := x.embedder.Embed(ctx, NodeText(n))
		if err != nil {
			return 0, fmt.Errorf("embedding node %s: %w", n.Name, err)
		}
		objects = append(objects, &models.Object{
			Class:  ClassNode,
			ID:     deterministicUUID(n.ID),
			Vector: models.C11yVector(vec),
			Properties: map[string]interface{}{
				"graph_id":  doc.GraphID,
				"project":   doc.ProjectName,
				"name":      n.Name,
				"node_type": n.Type,
				"content":   NodeText(n),
			},
		})
	}

	for i := range doc.Edges {
		e := &doc.Edges[i]
		vec, err := x.embedder.Embed(ctx, EdgeText(e))
		if err != nil {
			return 0, fmt.Errorf("embedding edge %s: %w", e.ID, err)
		}
		objects = append(objects, &models.Object{
			Class:  ClassEdge,
			ID:     deterministicUUID(e.ID),
			Vector: models.C11yVector(vec),
			Properties: map[string]interface{}{
				"graph_id": doc.GraphID,
				"project":  doc.ProjectName,
				"source":   e.Source,
				"target":   e.Target,
				"relation": e.Relation,
				"content":  EdgeText(e),
			},
		})
	}

	if len(objects) == 0 {
		return 0, nil
	}

	resp, err := x.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("batch import failed: %w", err)
	}

	written := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			written++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, e := range item.Result.Errors.Error {
				slog.Warn("weaviate batch item failed", slog.String("error", e.Message))
			}
		}
	}

	slog.Info("graph indexed",
		slog.String("graph_id", doc.GraphID),
		slog.Int("objects_written", written),
		slog.Int("objects_total", len(objects)))
	return written, nil
}

// SearchHit is one semantic search result.
type SearchHit struct {
	// Kind is "node" or "edge".
	Kind      string  `json:"kind"`
	GraphID   string  `json:"graph_id"`
	Project   string  `json:"project"`
	Name      string  `json:"name,omitempty"`
	NodeType  string  `json:"node_type,omitempty"`
	Source    string  `json:"source,omitempty"`
	Target    string  `json:"target,omitempty"`
	Relation  string  `json:"relation,omitempty"`
	Content   string  `json:"content"`
	Certainty float64 `json:"certainty"`
}

// Search embeds the query and returns the closest nodes and edges, best
// first. graphID is optional; when set, results are restricted to that
// graph.
func (x *Index) Search(ctx context.Context, query, graphID string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	nodeHits, err := x.searchClass(ctx, ClassNode, vec, graphID, limit)
	if err != nil {
		return nil, err
	}
	edgeHits, err := x.searchClass(ctx, ClassEdge, vec, graphID, limit)
	if err != nil {
		return nil, err
	}

	hits := append(nodeHits, edgeHits...)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Certainty > hits[j].Certainty })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (x *Index) searchClass(ctx context.Context, class string, vec []float32, graphID string, limit int) ([]SearchHit, error) {
	fieldNames := []graphql.Field{
		{Name: "graph_id"},
		{Name: "project"},
		{Name: "content"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}
	if class == ClassNode {
		fieldNames = append(fieldNames, graphql.Field{Name: "name"}, graphql.Field{Name: "node_type"})
	} else {
		fieldNames = append(fieldNames,
			graphql.Field{Name: "source"}, graphql.Field{Name: "target"}, graphql.Field{Name: "relation"})
	}

	nearVector := x.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	q := x.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fieldNames...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if graphID != "" {
		q = q.WithWhere(filters.Where().
			WithPath([]string{"graph_id"}).
			WithOperator(filters.Equal).
			WithValueString(graphID))
	}

	result, err := q.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	return parseHits(result.Data, class), nil
}

// parseHits unpacks the GraphQL Get payload for one class.
func parseHits(data map[string]models.JSONObject, class string) []SearchHit {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	rows, ok := get[class].([]interface{})
	if !ok {
		return nil
	}

	kind := "node"
	if class == ClassEdge {
		kind = "edge"
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		hit := SearchHit{
			Kind:     kind,
			GraphID:  asString(obj["graph_id"]),
			Project:  asString(obj["project"]),
			Name:     asString(obj["name"]),
			NodeType: asString(obj["node_type"]),
			Source:   asString(obj["source"]),
			Target:   asString(obj["target"]),
			Relation: asString(obj["relation"]),
			Content:  asString(obj["content"]),
		}
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				hit.Certainty = c
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// DeleteGraph removes every indexed object of the graph from both classes.
func (x *Index) DeleteGraph(ctx context.Context, graphID string) error {
	where := filters.Where().
		WithPath([]string{"graph_id"}).
		WithOperator(filters.Equal).
		WithValueString(graphID)

	for _, class := range []string{ClassNode, ClassEdge} {
		_, err := x.client.Batch().ObjectsBatchDeleter().
			WithClassName(class).
			WithWhere(where).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("deleting %s objects for graph %s: %w", class, graphID, err)
		}
	}

	slog.Info("graph removed from vector index", slog.String("graph_id", graphID))
	return nil
}
