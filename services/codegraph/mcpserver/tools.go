// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/AleutianAI/codegraph/services/codegraph"
	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/vector"
	"github.com/AleutianAI/codegraph/services/codegraph/visualization"
)

// Arguments structs

type ParseDirectoryArgs struct {
	Directory       string `json:"directory" jsonschema:"required,description:The absolute path of the Python source tree to analyze"`
	IncludeBuiltins bool   `json:"include_builtins" jsonschema:"description:Keep calls to Python builtin functions in the graph"`
	ExcludeStdlib   bool   `json:"exclude_stdlib" jsonschema:"description:Drop stdlib import edges and calls to stdlib-imported names"`
	QualifiedNames  bool   `json:"qualified_names" jsonschema:"description:Key function nodes as file.py::name instead of the bare name"`
}

type StoreGraphArgs struct {
	Directory       string `json:"directory" jsonschema:"required,description:The absolute path of the Python source tree to analyze"`
	ProjectName     string `json:"project_name" jsonschema:"description:Label for the stored graph, defaults to the directory path"`
	IncludeBuiltins bool   `json:"include_builtins" jsonschema:"description:Keep calls to Python builtin functions in the graph"`
	ExcludeStdlib   bool   `json:"exclude_stdlib" jsonschema:"description:Drop stdlib import edges and calls to stdlib-imported names"`
	QualifiedNames  bool   `json:"qualified_names" jsonschema:"description:Key function nodes as file.py::name instead of the bare name"`
}

type ListGraphsArgs struct{}

type DeleteGraphArgs struct {
	GraphID string `json:"graph_id" jsonschema:"required,description:The ID of the stored graph to delete"`
}

type SearchCodeArgs struct {
	Query   string `json:"query" jsonschema:"required,description:Natural language description of the code to find"`
	GraphID string `json:"graph_id" jsonschema:"description:Restrict the search to one stored graph"`
	Limit   int    `json:"limit" jsonschema:"description:Maximum number of results, default 10"`
	Explain bool   `json:"explain" jsonschema:"description:Ask the configured LLM to explain the results"`
}

type VisualizeGraphArgs struct {
	GraphID  string `json:"graph_id" jsonschema:"required,description:The ID of the stored graph to render"`
	Format   string `json:"format" jsonschema:"description:Output format: mermaid (default), dot, d3, or html"`
	Relation string `json:"relation" jsonschema:"description:Restrict to one relation: contains, imports, or calls"`
	MaxNodes int    `json:"max_nodes" jsonschema:"description:Node cap for the diagram, default 100"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "parse_code_directory",
		Description: "Extracts a call, containment, and import graph from a Python source tree and returns it without storing",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ParseDirectoryArgs) (*mcp.CallToolResult, any, error) {
		result, err := s.service.BuildGraph(ctx, args.Directory, codegraph.BuildOptions{
			IncludeBuiltins: args.IncludeBuiltins,
			ExcludeStdlib:   args.ExcludeStdlib,
			QualifiedNames:  args.QualifiedNames,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("Parse failed: %v", err)), nil, nil
		}

		out := map[string]any{
			"graph": result.Graph.Snapshot(),
			"stats": result.Stats,
		}
		if len(result.FileErrors) > 0 {
			msgs := make([]string, 0, len(result.FileErrors))
			for _, fe := range result.FileErrors {
				msgs = append(msgs, fe.Error())
			}
			out["file_errors"] = msgs
		}

		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "store_code_graph",
		Description: "Extracts a code graph, enriches it with docstring summaries, stores it, and indexes it for search",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args StoreGraphArgs) (*mcp.CallToolResult, any, error) {
		projectName := args.ProjectName
		if projectName == "" {
			projectName = args.Directory
		}

		doc, result, err := s.service.BuildAndStore(ctx, args.Directory, projectName, codegraph.BuildOptions{
			IncludeBuiltins: args.IncludeBuiltins,
			ExcludeStdlib:   args.ExcludeStdlib,
			QualifiedNames:  args.QualifiedNames,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("Store failed: %v", err)), nil, nil
		}

		msg := fmt.Sprintf("Stored graph %s with %d nodes and %d edges (%d files processed, %d skipped)",
			doc.GraphID, doc.NodeCount, doc.EdgeCount,
			result.Stats.FilesProcessed, result.Stats.FilesSkipped)
		return textResult(msg), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_stored_graphs",
		Description: "Lists stored code graphs, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListGraphsArgs) (*mcp.CallToolResult, any, error) {
		summaries, err := s.service.ListGraphs(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("List failed: %v", err)), nil, nil
		}
		if len(summaries) == 0 {
			return textResult("No graphs stored."), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(summaries, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_graph",
		Description: "Deletes a stored code graph and its search index entries",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DeleteGraphArgs) (*mcp.CallToolResult, any, error) {
		if err := s.service.DeleteGraph(ctx, args.GraphID); err != nil {
			return errorResult(fmt.Sprintf("Delete failed: %v", err)), nil, nil
		}
		return textResult(fmt.Sprintf("Deleted graph %s", args.GraphID)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over indexed code graph nodes and edges",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchCodeArgs) (*mcp.CallToolResult, any, error) {
		var (
			hits        []vector.SearchHit
			explanation string
			err         error
		)
		if args.Explain {
			hits, explanation, err = s.service.Explain(ctx, args.Query, args.GraphID, args.Limit)
		} else {
			hits, err = s.service.Search(ctx, args.Query, args.GraphID, args.Limit)
		}
		if err != nil {
			return errorResult(fmt.Sprintf("Search failed: %v", err)), nil, nil
		}

		if len(hits) == 0 {
			return textResult("No matching code found."), nil, nil
		}

		out := map[string]any{"hits": hits}
		if explanation != "" {
			out["explanation"] = explanation
		}
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "visualize_code_graph",
		Description: "Renders a stored code graph as a Mermaid, DOT, D3 JSON, or interactive HTML diagram",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args VisualizeGraphArgs) (*mcp.CallToolResult, any, error) {
		format := visualization.OutputFormat(args.Format)
		if args.Format == "" {
			format = visualization.FormatMermaid
		}

		opts := visualization.DefaultGraphOptions()
		if args.Relation != "" {
			opts.Relations = []graph.Relation{graph.Relation(args.Relation)}
		}
		if args.MaxNodes > 0 {
			opts.MaxNodes = args.MaxNodes
		}

		out, err := s.service.Visualize(ctx, args.GraphID, format, &opts)
		if err != nil {
			return errorResult(fmt.Sprintf("Visualize failed: %v", err)), nil, nil
		}
		return textResult(out), nil, nil
	})
}
