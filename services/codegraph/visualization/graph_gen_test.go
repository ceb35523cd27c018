// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package visualization

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

func sampleGraph() *graph.Graph {
	g := graph.NewGraph()
	g.EnsureNode("main.py", graph.NodeTypeFile)
	g.EnsureNode("utils.py", graph.NodeTypeFile)
	g.EnsureNode("process", graph.NodeTypeFunction)
	g.EnsureNode("helper", graph.NodeTypeFunction)
	g.EnsureEdge("main.py", "process", graph.RelationContains)
	g.EnsureEdge("utils.py", "helper", graph.RelationContains)
	g.EnsureEdge("main.py", "utils.py", graph.RelationImports)
	g.EnsureEdge("process", "helper", graph.RelationCalls)
	return g
}

func TestGenerateMermaid(t *testing.T) {
	gen := NewGraphGenerator(nil)
	out, err := gen.Generate(context.Background(), sampleGraph(), FormatMermaid)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	t.Run("has flowchart header with direction", func(t *testing.T) {
		if !strings.HasPrefix(out, "flowchart LR\n") {
			t.Errorf("unexpected header: %q", strings.SplitN(out, "\n", 2)[0])
		}
	})

	t.Run("files and functions get distinct classes", func(t *testing.T) {
		if !strings.Contains(out, `main_py[/"main.py"/]:::file`) {
			t.Errorf("file node missing or misrendered:\n%s", out)
		}
		if !strings.Contains(out, `process["process"]:::function`) {
			t.Errorf("function node missing or misrendered:\n%s", out)
		}
	})

	t.Run("import edges are dashed", func(t *testing.T) {
		if !strings.Contains(out, "main_py -.->|imports| utils_py") {
			t.Errorf("imports edge missing:\n%s", out)
		}
		if !strings.Contains(out, "process -->|calls| helper") {
			t.Errorf("calls edge missing:\n%s", out)
		}
	})
}

func TestGenerateDOT(t *testing.T) {
	gen := NewGraphGenerator(&GraphOptions{Direction: "TB"})
	out, err := gen.Generate(context.Background(), sampleGraph(), FormatDOT)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(out, "digraph CodeGraph {") {
		t.Errorf("missing digraph header:\n%s", out)
	}
	if !strings.Contains(out, "rankdir=TB;") {
		t.Errorf("missing rankdir:\n%s", out)
	}
	if !strings.Contains(out, `"main.py" -> "process" [label="contains"];`) {
		t.Errorf("contains edge missing:\n%s", out)
	}
	if !strings.Contains(out, `"main.py" -> "utils.py" [label="imports", style=dashed];`) {
		t.Errorf("imports edge missing:\n%s", out)
	}
}

func TestGenerateD3JSON(t *testing.T) {
	gen := NewGraphGenerator(nil)
	out, err := gen.Generate(context.Background(), sampleGraph(), FormatD3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var parsed struct {
		Nodes []struct {
			ID    string `json:"id"`
			Type  string `json:"type"`
			Group int    `json:"group"`
		} `json:"nodes"`
		Links []struct {
			Source   string `json:"source"`
			Target   string `json:"target"`
			Relation string `json:"relation"`
		} `json:"links"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if len(parsed.Nodes) != 4 {
		t.Errorf("node count = %d, want 4", len(parsed.Nodes))
	}
	if len(parsed.Links) != 4 {
		t.Errorf("link count = %d, want 4", len(parsed.Links))
	}
	for _, n := range parsed.Nodes {
		if n.Type == "file" && n.Group != 0 {
			t.Errorf("file node %s group = %d, want 0", n.ID, n.Group)
		}
	}
}

func TestGenerateHTML(t *testing.T) {
	gen := NewGraphGenerator(nil)
	out, err := gen.Generate(context.Background(), sampleGraph(), FormatHTML)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(out, "<!DOCTYPE html>") {
		t.Errorf("missing doctype")
	}
	if !strings.Contains(out, "d3.v7.min.js") {
		t.Errorf("missing d3 script tag")
	}
	if !strings.Contains(out, `"id": "main.py"`) {
		t.Errorf("embedded data missing nodes:\n%s", out[:200])
	}
}

func TestRelationFilter(t *testing.T) {
	gen := NewGraphGenerator(&GraphOptions{
		MaxNodes:  100,
		Direction: "LR",
		Relations: []graph.Relation{graph.RelationCalls},
	})
	out, err := gen.Generate(context.Background(), sampleGraph(), FormatMermaid)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if strings.Contains(out, "imports") {
		t.Errorf("import edges should be filtered out:\n%s", out)
	}
	if !strings.Contains(out, "process -->|calls| helper") {
		t.Errorf("calls edge should survive filter:\n%s", out)
	}
	if strings.Contains(out, "main_py[") {
		t.Errorf("nodes without filtered edges should be dropped:\n%s", out)
	}
}

func TestMaxNodes(t *testing.T) {
	g := graph.NewGraph()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		g.EnsureNode(name, graph.NodeTypeFunction)
	}
	g.EnsureEdge("a", "e", graph.RelationCalls)

	gen := NewGraphGenerator(&GraphOptions{MaxNodes: 3, Direction: "LR"})
	out, err := gen.Generate(context.Background(), g, FormatMermaid)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !strings.Contains(out, "...2 more nodes") {
		t.Errorf("overflow marker missing:\n%s", out)
	}
	if strings.Contains(out, "a -->|calls| e") {
		t.Errorf("edges to hidden nodes must be suppressed:\n%s", out)
	}
}

func TestGenerateErrors(t *testing.T) {
	gen := NewGraphGenerator(nil)

	t.Run("nil graph", func(t *testing.T) {
		if _, err := gen.Generate(context.Background(), nil, FormatMermaid); err == nil {
			t.Error("expected error for nil graph")
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		if _, err := gen.Generate(context.Background(), sampleGraph(), OutputFormat("png")); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}

func TestInputGraphNotMutated(t *testing.T) {
	g := sampleGraph()
	gen := NewGraphGenerator(&GraphOptions{MaxNodes: 2, Direction: "LR"})
	if _, err := gen.Generate(context.Background(), g, FormatDOT); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if g.NodeCount() != 4 || g.EdgeCount() != 4 {
		t.Errorf("graph mutated: %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
}
