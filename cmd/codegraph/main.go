// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command codegraph extracts call, containment, and import graphs from
// Python codebases and serves them over HTTP and MCP.
//
// Usage:
//
//	codegraph build ./my-project
//	codegraph store ./my-project --project my-project
//	codegraph list
//	codegraph search "functions that parse config files"
//	codegraph serve --port 8080
//	codegraph mcp
//
// With semantic search (requires Weaviate and an embedding service):
//
//	WEAVIATE_URL=http://localhost:8080 \
//	EMBEDDING_SERVICE_URL=http://localhost:11434 \
//	codegraph store ./my-project
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/codegraph"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
	badgerstore "github.com/AleutianAI/codegraph/services/codegraph/storage/badger"
	"github.com/AleutianAI/codegraph/services/codegraph/summarize"
	"github.com/AleutianAI/codegraph/services/codegraph/vector"
)

// Flag values shared across subcommands.
var (
	dbPath          string
	projectName     string
	includeBuiltins bool
	excludeStdlib   bool
	qualifiedNames  bool
	debugMode       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codegraph",
		Short: "Extract and query code graphs from Python codebases",
		Long: `codegraph parses Python source trees with tree-sitter and extracts a
graph of files, functions, and their containment, import, and call
relationships. Graphs can be returned inline, stored with docstring
enrichment, searched semantically, and rendered as diagrams.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", defaultDBPath(),
		"Directory for the graph database")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"Enable debug logging")

	rootCmd.AddCommand(
		newBuildCmd(),
		newStoreCmd(),
		newListCmd(),
		newDeleteCmd(),
		newSearchCmd(),
		newVisualizeCmd(),
		newServeCmd(),
		newMCPCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codegraph"
	}
	return filepath.Join(home, ".codegraph", "db")
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&includeBuiltins, "include-builtins", false,
		"Keep calls to Python builtin functions")
	cmd.Flags().BoolVar(&excludeStdlib, "exclude-stdlib", false,
		"Drop stdlib import edges and calls to stdlib-imported names")
	cmd.Flags().BoolVar(&qualifiedNames, "qualified", false,
		"Key function nodes as file.py::name")
}

func buildOptions() codegraph.BuildOptions {
	return codegraph.BuildOptions{
		IncludeBuiltins: includeBuiltins,
		ExcludeStdlib:   excludeStdlib,
		QualifiedNames:  qualifiedNames,
	}
}

// openService wires the store and the optional enrichment collaborators.
//
// The summarizer and vector index degrade gracefully: without API or
// service configuration, storage still works with docstring fallback
// summaries and no semantic search.
func openService() (*codegraph.Service, storage.GraphStore, error) {
	store, err := badgerstore.NewStoreAtPath(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening graph database at %s: %w", dbPath, err)
	}

	var summarizer *summarize.Summarizer
	if client, err := summarize.NewClientFromEnv(); err == nil {
		summarizer = summarize.NewSummarizer(client)
	} else {
		slog.Debug("no summarization API configured, using docstring fallback")
	}

	var index *vector.Index
	if weaviateURL := os.Getenv("WEAVIATE_URL"); weaviateURL != "" {
		embedder := vector.NewEmbedder(os.Getenv("EMBEDDING_SERVICE_URL"), os.Getenv("EMBEDDING_MODEL"))
		index, err = vector.NewIndex(vector.IndexConfig{URL: weaviateURL, Embedder: embedder})
		if err != nil {
			slog.Warn("vector index unavailable, semantic search disabled",
				slog.String("error", err.Error()))
			index = nil
		}
	}

	service, err := codegraph.NewService(codegraph.ServiceConfig{
		Store:      store,
		Summarizer: summarizer,
		Index:      index,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return service, store, nil
}
