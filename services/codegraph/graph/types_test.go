// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "testing"

func TestEnsureNode(t *testing.T) {
	g := NewGraph()

	t.Run("creates node", func(t *testing.T) {
		n := g.EnsureNode("main.py", NodeTypeFile)
		if n == nil || n.Type != NodeTypeFile {
			t.Fatalf("unexpected node: %+v", n)
		}
		if g.NodeCount() != 1 {
			t.Errorf("NodeCount = %d, want 1", g.NodeCount())
		}
	})

	t.Run("merges on repeat", func(t *testing.T) {
		g.EnsureNode("main.py", NodeTypeFile)
		if g.NodeCount() != 1 {
			t.Errorf("NodeCount = %d, want 1 after repeat insert", g.NodeCount())
		}
	})

	t.Run("empty type keeps existing", func(t *testing.T) {
		n := g.EnsureNode("main.py", "")
		if n.Type != NodeTypeFile {
			t.Errorf("Type = %q, want file", n.Type)
		}
	})

	t.Run("type overwrite", func(t *testing.T) {
		g.EnsureNode("helper", NodeTypeFunction)
		n := g.EnsureNode("helper", NodeTypeFile)
		if n.Type != NodeTypeFile {
			t.Errorf("Type = %q, want file after merge", n.Type)
		}
	})
}

func TestEnsureEdge(t *testing.T) {
	t.Run("creates endpoints", func(t *testing.T) {
		g := NewGraph()
		g.EnsureEdge("a", "b", RelationCalls)
		if g.NodeCount() != 2 {
			t.Errorf("NodeCount = %d, want 2", g.NodeCount())
		}
		if g.Node("a").Type != NodeTypeFunction {
			t.Errorf("implicit endpoint type = %q, want function", g.Node("a").Type)
		}
		if !g.HasEdge("a", "b") {
			t.Error("expected edge a->b")
		}
		if g.HasEdge("b", "a") {
			t.Error("edge should be directed")
		}
	})

	t.Run("overwrites relation", func(t *testing.T) {
		g := NewGraph()
		g.EnsureEdge("a", "b", RelationCalls)
		g.EnsureEdge("a", "b", RelationImports)
		if g.EdgeCount() != 1 {
			t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
		}
		if got := g.EdgeBetween("a", "b").Relation; got != RelationImports {
			t.Errorf("Relation = %q, want imports", got)
		}
	})

	t.Run("parallel pairs are distinct", func(t *testing.T) {
		g := NewGraph()
		g.EnsureEdge("a", "b", RelationCalls)
		g.EnsureEdge("b", "a", RelationCalls)
		if g.EdgeCount() != 2 {
			t.Errorf("EdgeCount = %d, want 2", g.EdgeCount())
		}
	})
}

func TestGraphIterationOrder(t *testing.T) {
	g := NewGraph()
	g.EnsureNode("c", NodeTypeFunction)
	g.EnsureNode("a", NodeTypeFunction)
	g.EnsureNode("b", NodeTypeFunction)
	g.EnsureEdge("c", "a", RelationCalls)
	g.EnsureEdge("a", "b", RelationCalls)

	nodes := g.Nodes()
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if nodes[i].ID != id {
			t.Fatalf("nodes[%d] = %q, want %q", i, nodes[i].ID, id)
		}
	}

	edges := g.Edges()
	if edges[0].Source != "c" || edges[1].Source != "a" {
		t.Error("edges not in insertion order")
	}
}

func TestOutEdges(t *testing.T) {
	g := NewGraph()
	g.EnsureEdge("f", "g", RelationCalls)
	g.EnsureEdge("f", "h", RelationCalls)
	g.EnsureEdge("g", "h", RelationCalls)

	out := g.OutEdges("f")
	if len(out) != 2 {
		t.Fatalf("len(OutEdges) = %d, want 2", len(out))
	}
}
