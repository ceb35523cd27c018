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
	"fmt"
	"strings"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

// OutputFormat specifies the visualization output format.
type OutputFormat string

const (
	FormatMermaid OutputFormat = "mermaid"
	FormatDOT     OutputFormat = "dot"
	FormatD3      OutputFormat = "d3"
	FormatHTML    OutputFormat = "html"
)

// GraphGenerator renders code graphs in textual diagram formats.
//
// # Description
//
// Produces Mermaid flowcharts, Graphviz DOT, D3.js JSON, and a
// self-contained interactive HTML page. All rendering is done locally
// without external services. The input graph is never mutated.
//
// # Thread Safety
//
// Safe for concurrent use.
type GraphGenerator struct {
	options GraphOptions
}

// GraphOptions configures graph generation.
type GraphOptions struct {
	// MaxNodes limits the number of nodes in the output.
	// Default: 100
	MaxNodes int

	// Direction is the flowchart direction (TB, LR, BT, RL).
	// Default: "LR"
	Direction string

	// Relations restricts output to edges with these relations.
	// Empty means all relations.
	Relations []graph.Relation
}

// DefaultGraphOptions returns sensible defaults.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes:  100,
		Direction: "LR",
	}
}

// NewGraphGenerator creates a new graph generator.
func NewGraphGenerator(opts *GraphOptions) *GraphGenerator {
	if opts == nil {
		defaults := DefaultGraphOptions()
		opts = &defaults
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 100
	}
	if opts.Direction == "" {
		opts.Direction = "LR"
	}
	return &GraphGenerator{options: *opts}
}

// Generate creates a visual representation of a code graph.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - g: The graph to visualize.
//   - format: The output format.
//
// # Outputs
//
//   - string: The visualization in the requested format.
//   - error: Non-nil on failure.
func (gen *GraphGenerator) Generate(ctx context.Context, g *graph.Graph, format OutputFormat) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	if g == nil {
		return "", fmt.Errorf("graph is required")
	}

	switch format {
	case FormatMermaid:
		return gen.generateMermaid(g), nil
	case FormatDOT:
		return gen.generateDOT(g), nil
	case FormatD3:
		return gen.generateD3JSON(g)
	case FormatHTML:
		return gen.InteractiveVisualization(ctx, g)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// visibleNodes returns up to MaxNodes nodes, plus the count left out.
// When a relation filter is active, only endpoints of matching edges
// are considered.
func (gen *GraphGenerator) visibleNodes(g *graph.Graph) ([]*graph.Node, int) {
	nodes := g.Nodes()
	if len(gen.options.Relations) > 0 {
		keep := make(map[string]bool)
		for _, e := range gen.filteredEdges(g) {
			keep[e.Source] = true
			keep[e.Target] = true
		}
		filtered := nodes[:0:0]
		for _, n := range nodes {
			if keep[n.ID] {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}
	if len(nodes) > gen.options.MaxNodes {
		return nodes[:gen.options.MaxNodes], len(nodes) - gen.options.MaxNodes
	}
	return nodes, 0
}

func (gen *GraphGenerator) filteredEdges(g *graph.Graph) []*graph.Edge {
	edges := g.Edges()
	if len(gen.options.Relations) == 0 {
		return edges
	}
	allowed := make(map[graph.Relation]bool, len(gen.options.Relations))
	for _, r := range gen.options.Relations {
		allowed[r] = true
	}
	filtered := edges[:0:0]
	for _, e := range edges {
		if allowed[e.Relation] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// generateMermaid creates a Mermaid flowchart diagram.
func (gen *GraphGenerator) generateMermaid(g *graph.Graph) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("flowchart %s\n", gen.options.Direction))

	nodes, overflow := gen.visibleNodes(g)
	shown := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		id := sanitizeMermaidID(n.ID)
		shown[n.ID] = true
		if n.Type == graph.NodeTypeFile {
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]:::file\n", id, escapeMermaidLabel(n.ID)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::function\n", id, escapeMermaidLabel(n.ID)))
		}
	}
	if overflow > 0 {
		sb.WriteString(fmt.Sprintf("    more[...%d more nodes]\n", overflow))
	}

	sb.WriteString("\n")
	for _, e := range gen.filteredEdges(g) {
		if !shown[e.Source] || !shown[e.Target] {
			continue
		}
		arrow := "-->"
		if e.Relation == graph.RelationImports {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s|%s| %s\n",
			sanitizeMermaidID(e.Source), arrow, e.Relation, sanitizeMermaidID(e.Target)))
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef file fill:#74b9ff,stroke:#333,stroke-width:2px\n")
	sb.WriteString("    classDef function fill:#10ac84,stroke:#333,color:#fff\n")

	return sb.String()
}

// generateDOT creates a Graphviz DOT format graph.
func (gen *GraphGenerator) generateDOT(g *graph.Graph) string {
	var sb strings.Builder

	sb.WriteString("digraph CodeGraph {\n")
	sb.WriteString(fmt.Sprintf("    rankdir=%s;\n", gen.options.Direction))
	sb.WriteString("    node [style=filled];\n")
	sb.WriteString("\n")

	nodes, overflow := gen.visibleNodes(g)
	shown := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		shown[n.ID] = true
		if n.Type == graph.NodeTypeFile {
			sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", shape=folder, fillcolor=\"#74b9ff\"];\n",
				sanitizeDOTID(n.ID), escapeDOTLabel(n.ID)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s [label=\"%s\", shape=box, fillcolor=\"#10ac84\", fontcolor=\"white\"];\n",
				sanitizeDOTID(n.ID), escapeDOTLabel(n.ID)))
		}
	}
	if overflow > 0 {
		sb.WriteString(fmt.Sprintf("    overflow [label=\"+%d more\", shape=plaintext];\n", overflow))
	}

	sb.WriteString("\n")
	for _, e := range gen.filteredEdges(g) {
		if !shown[e.Source] || !shown[e.Target] {
			continue
		}
		style := ""
		if e.Relation == graph.RelationImports {
			style = ", style=dashed"
		}
		sb.WriteString(fmt.Sprintf("    %s -> %s [label=\"%s\"%s];\n",
			sanitizeDOTID(e.Source), sanitizeDOTID(e.Target), e.Relation, style))
	}

	sb.WriteString("}\n")
	return sb.String()
}

// generateD3JSON creates D3.js compatible JSON.
func (gen *GraphGenerator) generateD3JSON(g *graph.Graph) (string, error) {
	type D3Node struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Group int    `json:"group"`
	}

	type D3Link struct {
		Source   string `json:"source"`
		Target   string `json:"target"`
		Relation string `json:"relation"`
	}

	type D3Graph struct {
		Nodes []D3Node `json:"nodes"`
		Links []D3Link `json:"links"`
	}

	out := D3Graph{
		Nodes: make([]D3Node, 0),
		Links: make([]D3Link, 0),
	}

	nodes, _ := gen.visibleNodes(g)
	shown := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		shown[n.ID] = true
		group := 1
		if n.Type == graph.NodeTypeFile {
			group = 0
		}
		out.Nodes = append(out.Nodes, D3Node{ID: n.ID, Type: string(n.Type), Group: group})
	}

	for _, e := range gen.filteredEdges(g) {
		if !shown[e.Source] || !shown[e.Target] {
			continue
		}
		out.Links = append(out.Links, D3Link{Source: e.Source, Target: e.Target, Relation: string(e.Relation)})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// InteractiveVisualization generates a complete interactive HTML page.
func (gen *GraphGenerator) InteractiveVisualization(ctx context.Context, g *graph.Graph) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	d3JSON, err := gen.generateD3JSON(g)
	if err != nil {
		return "", err
	}
	return GraphHTMLTemplate(d3JSON), nil
}

// Helper functions

func sanitizeMermaidID(s string) string {
	replacer := strings.NewReplacer(
		":", "_",
		"/", "_",
		".", "_",
		"-", "_",
		" ", "_",
		"(", "",
		")", "",
	)
	result := replacer.Replace(s)
	if len(result) > 0 && (result[0] >= '0' && result[0] <= '9') {
		result = "n" + result
	}
	return result
}

func sanitizeDOTID(s string) string {
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(s, "\"", "\\\""))
}

func escapeMermaidLabel(s string) string {
	replacer := strings.NewReplacer(
		"\"", "#quot;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}

func escapeDOTLabel(s string) string {
	replacer := strings.NewReplacer(
		"\"", "\\\"",
		"\n", "\\n",
	)
	return replacer.Replace(s)
}

// GraphHTMLTemplate returns an HTML page for interactive D3 visualization.
func GraphHTMLTemplate(d3JSON string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Code Graph Visualization</title>
  <script src="https://d3js.org/d3.v7.min.js"></script>
  <style>
    body { margin: 0; font-family: Arial, sans-serif; }
    svg { width: 100%%; height: 100vh; }
    .node circle { stroke: #333; stroke-width: 1.5px; }
    .node text { font-size: 12px; }
    .link { stroke: #999; stroke-opacity: 0.6; }
    .link.imports { stroke-dasharray: 4; }
    .node.file circle { fill: #74b9ff; }
    .node.function circle { fill: #10ac84; }
  </style>
</head>
<body>
  <svg></svg>
  <script>
    const data = %s;

    const width = window.innerWidth;
    const height = window.innerHeight;

    const svg = d3.select("svg");

    const simulation = d3.forceSimulation(data.nodes)
      .force("link", d3.forceLink(data.links).id(d => d.id).distance(100))
      .force("charge", d3.forceManyBody().strength(-200))
      .force("center", d3.forceCenter(width / 2, height / 2));

    const link = svg.append("g")
      .selectAll("line")
      .data(data.links)
      .join("line")
      .attr("class", d => "link " + d.relation);

    const node = svg.append("g")
      .selectAll("g")
      .data(data.nodes)
      .join("g")
      .attr("class", d => "node " + d.type)
      .call(d3.drag()
        .on("start", dragstarted)
        .on("drag", dragged)
        .on("end", dragended));

    node.append("circle")
      .attr("r", d => d.type === "file" ? 14 : 8);

    node.append("text")
      .attr("dx", 15)
      .attr("dy", 4)
      .text(d => d.id);

    simulation.on("tick", () => {
      link
        .attr("x1", d => d.source.x)
        .attr("y1", d => d.source.y)
        .attr("x2", d => d.target.x)
        .attr("y2", d => d.target.y);

      node.attr("transform", d => "translate(" + d.x + "," + d.y + ")");
    });

    function dragstarted(event) {
      if (!event.active) simulation.alphaTarget(0.3).restart();
      event.subject.fx = event.subject.x;
      event.subject.fy = event.subject.y;
    }

    function dragged(event) {
      event.subject.fx = event.x;
      event.subject.fy = event.y;
    }

    function dragended(event) {
      if (!event.active) simulation.alphaTarget(0);
      event.subject.fx = null;
      event.subject.fy = null;
    }
  </script>
</body>
</html>`, d3JSON)
}
