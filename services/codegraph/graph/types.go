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

// Relation labels a directed edge in a code graph.
type Relation string

// Edge relations produced by extraction.
const (
	// RelationContains links a source file to a function it defines.
	RelationContains Relation = "contains"

	// RelationImports links a source file to a module it from-imports.
	RelationImports Relation = "imports"

	// RelationCalls links a caller function to a callee function.
	RelationCalls Relation = "calls"
)

// NodeType classifies a node in a code graph.
type NodeType string

// Node types produced by extraction.
const (
	NodeTypeFile     NodeType = "file"
	NodeTypeFunction NodeType = "function"
)

// Node is a vertex in a code graph.
//
// Description:
//
//	In the default flat mode a function node's ID is its bare name, so
//	same-named functions across files collapse into one node. File nodes
//	are keyed by their base filename, so a file referenced by an import
//	merges with the same file parsed from any directory.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
}

// Edge is a directed, labeled edge between two nodes.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation Relation `json:"relation"`
}

// Graph is a simple directed graph over code entities.
//
// Description:
//
//	Graph holds at most one edge per ordered (source, target) pair; writing
//	an edge for an existing pair overwrites its relation. Nodes are created
//	lazily and merged on repeat insertion. Iteration order over Nodes and
//	Edges is insertion order, which keeps serialized output deterministic.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent mutation. Extraction mutates it from
//	a single goroutine; afterwards concurrent reads are safe.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string

	edges     []*Edge
	edgeIndex map[string]*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		edgeIndex: make(map[string]*Edge),
	}
}

func edgeKey(source, target string) string {
	return source + "\x00" + target
}

// EnsureNode creates the node if absent, or merges the type into the
// existing node. An empty nodeType leaves an existing node's type alone.
func (g *Graph) EnsureNode(id string, nodeType NodeType) *Node {
	if n, ok := g.nodes[id]; ok {
		if nodeType != "" {
			n.Type = nodeType
		}
		return n
	}
	n := &Node{ID: id, Type: nodeType}
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	return n
}

// EnsureEdge creates the edge if absent, or overwrites the relation of the
// existing (source, target) edge. Missing endpoint nodes are created with
// the function type.
func (g *Graph) EnsureEdge(source, target string, relation Relation) *Edge {
	if _, ok := g.nodes[source]; !ok {
		g.EnsureNode(source, NodeTypeFunction)
	}
	if _, ok := g.nodes[target]; !ok {
		g.EnsureNode(target, NodeTypeFunction)
	}

	key := edgeKey(source, target)
	if e, ok := g.edgeIndex[key]; ok {
		e.Relation = relation
		return e
	}
	e := &Edge{Source: source, Target: target, Relation: relation}
	g.edges = append(g.edges, e)
	g.edgeIndex[key] = e
	return e
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// HasEdge reports whether an edge exists for the ordered pair.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edgeIndex[edgeKey(source, target)]
	return ok
}

// EdgeBetween returns the edge for the ordered pair, or nil.
func (g *Graph) EdgeBetween(source, target string) *Edge {
	return g.edgeIndex[edgeKey(source, target)]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all nodes in insertion order. The returned slice is a copy;
// the pointed-to nodes are shared.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order. The returned slice is a copy;
// the pointed-to edges are shared.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the edges leaving the given node, in insertion order.
func (g *Graph) OutEdges(source string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}
