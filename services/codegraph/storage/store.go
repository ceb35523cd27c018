// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the graph document model and the persistence
// contract for extracted code graphs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/codegraph/services/codegraph/docstring"
	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

// ErrNotFound indicates the requested graph does not exist in the store.
var ErrNotFound = errors.New("graph not found")

// NodeDocument is one graph node rendered for persistence.
type NodeDocument struct {
	// ID is "<graph_id>_<node name>", unique across stored graphs.
	ID string `json:"id"`

	// Name is the node's identity within its graph.
	Name string `json:"name"`

	// Type is "file" or "function".
	Type string `json:"type"`

	// Description is the enrichment summary, when available.
	Description string `json:"description,omitempty"`

	// DocstringData carries the parsed docstring sections for function
	// nodes that had one.
	DocstringData *docstring.Sections `json:"docstring_data,omitempty"`
}

// EdgeDocument is one graph edge rendered for persistence.
type EdgeDocument struct {
	// ID is "<graph_id>_<source>_<target>".
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// GraphDocument is a stored code graph.
type GraphDocument struct {
	GraphID     string         `json:"graph_id"`
	ProjectName string         `json:"project_name"`
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	Timestamp   time.Time      `json:"timestamp"`
	Nodes       []NodeDocument `json:"nodes"`
	Edges       []EdgeDocument `json:"edges"`
}

// GraphSummary is the listing view of a stored graph, without its nodes
// and edges.
type GraphSummary struct {
	GraphID     string    `json:"graph_id"`
	ProjectName string    `json:"project_name"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// GraphStore persists graph documents.
//
// Implementations must be safe for concurrent use.
type GraphStore interface {
	// StoreGraph writes the document, overwriting any graph with the
	// same GraphID.
	StoreGraph(ctx context.Context, doc *GraphDocument) error

	// GetGraph returns the document for graphID, or ErrNotFound.
	GetGraph(ctx context.Context, graphID string) (*GraphDocument, error)

	// ListGraphs returns summaries of every stored graph.
	ListGraphs(ctx context.Context) ([]GraphSummary, error)

	// DeleteGraph removes the graph, returning ErrNotFound if absent.
	DeleteGraph(ctx context.Context, graphID string) error

	// Close releases the store's resources.
	Close() error
}

// NewDocument renders a built graph as a storable document.
//
// Description:
//
//	Assigns a fresh graph ID and maps every node and edge to its document
//	form. docs and summaries are optional enrichment: when present,
//	function nodes get their summary as Description and their parsed
//	docstring sections attached. Qualified node names ("file::name") look
//	up enrichment by the bare name.
func NewDocument(g *graph.Graph, projectName string, docs *docstring.Index, summaries map[string]string) *GraphDocument {
	graphID := uuid.NewString()

	doc := &GraphDocument{
		GraphID:     graphID,
		ProjectName: projectName,
		NodeCount:   g.NodeCount(),
		EdgeCount:   g.EdgeCount(),
		Timestamp:   time.Now().UTC(),
		Nodes:       make([]NodeDocument, 0, g.NodeCount()),
		Edges:       make([]EdgeDocument, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		nd := NodeDocument{
			ID:   fmt.Sprintf("%s_%s", graphID, n.ID),
			Name: n.ID,
			Type: string(n.Type),
		}
		if n.Type == graph.NodeTypeFunction {
			bare := bareName(n.ID)
			if summaries != nil {
				nd.Description = summaries[bare]
			}
			if docs != nil {
				if raw, ok := docs.Lookup(bare); ok {
					if sections := docstring.Parse(raw); !sections.IsZero() {
						nd.DocstringData = sections
						if nd.Description == "" {
							nd.Description = sections.Summary
						}
					}
				}
			}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDocument{
			ID:       fmt.Sprintf("%s_%s_%s", graphID, e.Source, e.Target),
			Source:   e.Source,
			Target:   e.Target,
			Relation: string(e.Relation),
		})
	}

	return doc
}

// Summary returns the listing view of the document.
func (d *GraphDocument) Summary() GraphSummary {
	return GraphSummary{
		GraphID:     d.GraphID,
		ProjectName: d.ProjectName,
		NodeCount:   d.NodeCount,
		EdgeCount:   d.EdgeCount,
		Timestamp:   d.Timestamp,
	}
}

// bareName strips a "file::" qualifier from a node name.
func bareName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}
