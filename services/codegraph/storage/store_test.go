// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
	"github.com/AleutianAI/codegraph/services/codegraph/docstring"
	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

func sampleGraph() *graph.Graph {
	g := graph.NewGraph()
	g.EnsureNode("a.py", graph.NodeTypeFile)
	g.EnsureNode("process", graph.NodeTypeFunction)
	g.EnsureEdge("a.py", "process", graph.RelationContains)
	g.EnsureEdge("process", "helper", graph.RelationCalls)
	return g
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(sampleGraph(), "demo", nil, nil)

	require.NotEmpty(t, doc.GraphID)
	assert.Equal(t, "demo", doc.ProjectName)
	assert.Equal(t, 3, doc.NodeCount)
	assert.Equal(t, 2, doc.EdgeCount)
	assert.False(t, doc.Timestamp.IsZero())
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 2)

	assert.Equal(t, doc.GraphID+"_a.py", doc.Nodes[0].ID)
	assert.Equal(t, "file", doc.Nodes[0].Type)
	assert.Equal(t, doc.GraphID+"_a.py_process", doc.Edges[0].ID)
	assert.Equal(t, "contains", doc.Edges[0].Relation)
}

func TestNewDocumentEnrichment(t *testing.T) {
	src := "def process(x):\n" +
		"    \"\"\"Process one record.\n" +
		"\n" +
		"    Args:\n" +
		"        x: The record.\n" +
		"    \"\"\"\n" +
		"    pass\n"
	file, err := ast.ParsePython(context.Background(), []byte(src), "a.py")
	require.NoError(t, err)
	defer file.Close()
	docs := docstring.ExtractFromSource(file)

	summaries := map[string]string{"process": "Processes a single record."}
	doc := NewDocument(sampleGraph(), "demo", docs, summaries)

	var processNode *NodeDocument
	for i := range doc.Nodes {
		if doc.Nodes[i].Name == "process" {
			processNode = &doc.Nodes[i]
		}
	}
	require.NotNil(t, processNode)
	assert.Equal(t, "Processes a single record.", processNode.Description)
	require.NotNil(t, processNode.DocstringData)
	assert.Equal(t, "Process one record.", processNode.DocstringData.Summary)
	assert.Contains(t, processNode.DocstringData.Parameters, "x")
}

func TestNewDocumentSummaryFallsBackToDocstring(t *testing.T) {
	src := "def process(x):\n    \"\"\"Process one record.\"\"\"\n    pass\n"
	file, err := ast.ParsePython(context.Background(), []byte(src), "a.py")
	require.NoError(t, err)
	defer file.Close()
	docs := docstring.ExtractFromSource(file)

	doc := NewDocument(sampleGraph(), "demo", docs, nil)
	for _, n := range doc.Nodes {
		if n.Name == "process" {
			assert.Equal(t, "Process one record.", n.Description)
		}
	}
}

func TestNewDocumentQualifiedNames(t *testing.T) {
	g := graph.NewGraph()
	g.EnsureNode("a.py::process", graph.NodeTypeFunction)

	doc := NewDocument(g, "demo", nil, map[string]string{"process": "Summary."})
	assert.Equal(t, "Summary.", doc.Nodes[0].Description)
}

func TestDocumentSummaryView(t *testing.T) {
	doc := NewDocument(sampleGraph(), "demo", nil, nil)
	s := doc.Summary()
	assert.Equal(t, doc.GraphID, s.GraphID)
	assert.Equal(t, doc.NodeCount, s.NodeCount)
	assert.Equal(t, doc.EdgeCount, s.EdgeCount)
}
