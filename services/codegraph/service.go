// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/codegraph/services/codegraph/docstring"
	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
	"github.com/AleutianAI/codegraph/services/codegraph/summarize"
	"github.com/AleutianAI/codegraph/services/codegraph/vector"
	"github.com/AleutianAI/codegraph/services/codegraph/visualization"
)

// ServiceConfig configures the code graph service.
type ServiceConfig struct {
	// Store persists extracted graphs. Required.
	Store storage.GraphStore

	// Summarizer produces LLM descriptions for stored functions.
	// Optional; when nil, docstring fallback summaries are used.
	Summarizer *summarize.Summarizer

	// Index is the semantic search backend. Optional; when nil,
	// indexing is skipped and search returns an error.
	Index *vector.Index
}

// Service coordinates graph extraction, enrichment, persistence, and
// search.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying store and index handle their
// own synchronization.
type Service struct {
	store      storage.GraphStore
	summarizer *summarize.Summarizer
	index      *vector.Index
}

// NewService creates a service from the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("codegraph: store is required")
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = summarize.NewSummarizer(nil)
	}
	return &Service{
		store:      cfg.Store,
		summarizer: summarizer,
		index:      cfg.Index,
	}, nil
}

// BuildOptions selects graph extraction behavior for one build.
type BuildOptions struct {
	// IncludeBuiltins keeps calls to Python builtin functions.
	IncludeBuiltins bool

	// ExcludeStdlib drops stdlib import edges and calls to names
	// imported from stdlib modules.
	ExcludeStdlib bool

	// QualifiedNames keys function nodes as "file.py::name".
	QualifiedNames bool
}

func (o BuildOptions) builderOptions() []graph.BuilderOption {
	return []graph.BuilderOption{
		graph.WithExcludeBuiltins(!o.IncludeBuiltins),
		graph.WithExcludeStdlib(o.ExcludeStdlib),
		graph.WithQualifiedNames(o.QualifiedNames),
	}
}

// BuildGraph extracts the code graph of a Python source tree.
func (s *Service) BuildGraph(ctx context.Context, root string, opts BuildOptions) (*graph.BuildResult, error) {
	builder := graph.NewBuilder(root, opts.builderOptions()...)
	result, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building graph for %s: %w", root, err)
	}
	return result, nil
}

// BuildAndStore extracts a graph, enriches function nodes with docstring
// data and summaries, persists the document, and indexes it for search.
//
// # Outputs
//
//   - *storage.GraphDocument: The stored document, including its new
//     graph ID.
//   - *graph.BuildResult: Extraction stats and per-file errors.
//   - error: Non-nil if extraction or persistence fails. Index failures
//     degrade to a warning.
func (s *Service) BuildAndStore(ctx context.Context, root, projectName string, opts BuildOptions) (*storage.GraphDocument, *graph.BuildResult, error) {
	result, err := s.BuildGraph(ctx, root, opts)
	if err != nil {
		return nil, nil, err
	}

	docs, err := docstring.ExtractFromDirectory(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting docstrings: %w", err)
	}

	summaries, err := s.summarizeFunctions(ctx, result.Graph, docs)
	if err != nil {
		return nil, nil, err
	}

	doc := storage.NewDocument(result.Graph, projectName, docs, summaries)
	if err := s.store.StoreGraph(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("storing graph: %w", err)
	}

	if s.index != nil {
		if err := s.index.EnsureSchema(ctx); err != nil {
			slog.Warn("vector schema setup failed, graph not indexed",
				slog.String("graph_id", doc.GraphID),
				slog.String("error", err.Error()))
		} else if _, err := s.index.IndexGraph(ctx, doc); err != nil {
			slog.Warn("vector indexing failed, search unavailable for graph",
				slog.String("graph_id", doc.GraphID),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("graph stored",
		slog.String("graph_id", doc.GraphID),
		slog.String("project", projectName),
		slog.Int("nodes", doc.NodeCount),
		slog.Int("edges", doc.EdgeCount))
	return doc, result, nil
}

// summarizeFunctions produces a summary per function node. Docstring
// summaries are the input text; functions without docstrings fall back
// to a placeholder description.
func (s *Service) summarizeFunctions(ctx context.Context, g *graph.Graph, docs *docstring.Index) (map[string]string, error) {
	items := make(map[string]string)
	for _, n := range g.Nodes() {
		if n.Type != graph.NodeTypeFunction {
			continue
		}
		if raw, ok := docs.Lookup(bareFunctionName(n.ID)); ok {
			items[n.ID] = raw
		}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return s.summarizer.SummarizeBatch(ctx, items)
}

// bareFunctionName strips a "file.py::" qualifier from a node ID.
func bareFunctionName(id string) string {
	if i := strings.LastIndex(id, "::"); i >= 0 {
		return id[i+2:]
	}
	return id
}

// ListGraphs returns summaries of stored graphs, newest first.
func (s *Service) ListGraphs(ctx context.Context) ([]storage.GraphSummary, error) {
	return s.store.ListGraphs(ctx)
}

// GetGraph loads one stored graph document.
func (s *Service) GetGraph(ctx context.Context, graphID string) (*storage.GraphDocument, error) {
	return s.store.GetGraph(ctx, graphID)
}

// DeleteGraph removes a stored graph and its index entries.
func (s *Service) DeleteGraph(ctx context.Context, graphID string) error {
	if err := s.store.DeleteGraph(ctx, graphID); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.DeleteGraph(ctx, graphID); err != nil {
			slog.Warn("vector index cleanup failed",
				slog.String("graph_id", graphID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Search runs a semantic search over indexed graph entities.
func (s *Service) Search(ctx context.Context, query, graphID string, limit int) ([]vector.SearchHit, error) {
	if s.index == nil {
		return nil, fmt.Errorf("codegraph: semantic search is not configured")
	}
	return s.index.Search(ctx, query, graphID, limit)
}

// Explain searches and asks the summarizer's LLM to explain the results
// in the context of the query. Falls back to raw hits when no LLM client
// is configured.
func (s *Service) Explain(ctx context.Context, query, graphID string, limit int) ([]vector.SearchHit, string, error) {
	hits, err := s.Search(ctx, query, graphID, limit)
	if err != nil {
		return nil, "", err
	}
	explanation := s.summarizer.ExplainHits(ctx, query, hitContents(hits))
	return hits, explanation, nil
}

func hitContents(hits []vector.SearchHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Content)
	}
	return out
}

// Visualize renders a stored graph in the requested diagram format.
func (s *Service) Visualize(ctx context.Context, graphID string, format visualization.OutputFormat, opts *visualization.GraphOptions) (string, error) {
	doc, err := s.store.GetGraph(ctx, graphID)
	if err != nil {
		return "", err
	}
	gen := visualization.NewGraphGenerator(opts)
	return gen.Generate(ctx, RebuildGraph(doc), format)
}

// RebuildGraph reconstructs an in-memory graph from a stored document.
func RebuildGraph(doc *storage.GraphDocument) *graph.Graph {
	g := graph.NewGraph()
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		g.EnsureNode(n.Name, graph.NodeType(n.Type))
	}
	for i := range doc.Edges {
		e := &doc.Edges[i]
		g.EnsureEdge(e.Source, e.Target, graph.Relation(e.Relation))
	}
	return g
}
