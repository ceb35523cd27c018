// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/vector"
	"github.com/AleutianAI/codegraph/services/codegraph/visualization"
)

func newBuildCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "build <directory>",
		Short: "Extract a code graph and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := service.BuildGraph(cmd.Context(), args[0], buildOptions())
			if err != nil {
				return err
			}

			for _, fe := range result.FileErrors {
				fmt.Fprintln(os.Stderr, "skipped:", fe.Error())
			}
			fmt.Fprintf(os.Stderr, "%d files processed, %d skipped, %d nodes, %d edges\n",
				result.Stats.FilesProcessed, result.Stats.FilesSkipped,
				result.Graph.NodeCount(), result.Graph.EdgeCount())

			data, err := json.MarshalIndent(result.Graph.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			if outputPath != "" {
				return os.WriteFile(outputPath, data, 0o644)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	addBuildFlags(cmd)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the graph JSON to a file")
	return cmd
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store <directory>",
		Short: "Extract, enrich, and store a code graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			name := projectName
			if name == "" {
				name = args[0]
			}

			doc, result, err := service.BuildAndStore(cmd.Context(), args[0], name, buildOptions())
			if err != nil {
				return err
			}

			for _, fe := range result.FileErrors {
				fmt.Fprintln(os.Stderr, "skipped:", fe.Error())
			}
			fmt.Printf("Stored graph %s (%d nodes, %d edges)\n",
				doc.GraphID, doc.NodeCount, doc.EdgeCount)
			return nil
		},
	}

	addBuildFlags(cmd)
	cmd.Flags().StringVar(&projectName, "project", "", "Project name for the stored graph")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored code graphs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			summaries, err := service.ListGraphs(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No graphs stored.")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%s  %-30s %5d nodes %5d edges  %s\n",
					s.GraphID, s.ProjectName, s.NodeCount, s.EdgeCount,
					s.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <graph-id>",
		Short: "Delete a stored code graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := service.DeleteGraph(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted graph", args[0])
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var (
		graphID string
		limit   int
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over indexed code graphs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			if explain {
				hits, explanation, err := service.Explain(cmd.Context(), args[0], graphID, limit)
				if err != nil {
					return err
				}
				printHits(hits)
				if explanation != "" {
					fmt.Println("\n" + explanation)
				}
				return nil
			}

			hits, err := service.Search(cmd.Context(), args[0], graphID, limit)
			if err != nil {
				return err
			}
			printHits(hits)
			return nil
		},
	}

	cmd.Flags().StringVar(&graphID, "graph", "", "Restrict the search to one stored graph")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&explain, "explain", false, "Ask the configured LLM to explain the results")
	return cmd
}

func printHits(hits []vector.SearchHit) {
	if len(hits) == 0 {
		fmt.Println("No matching code found.")
		return
	}
	for i, h := range hits {
		fmt.Printf("%2d. [%.3f] %s\n", i+1, h.Certainty, h.Content)
	}
}

func newVisualizeCmd() *cobra.Command {
	var (
		format     string
		relation   string
		maxNodes   int
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "visualize <graph-id>",
		Short: "Render a stored code graph as a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			opts := visualization.DefaultGraphOptions()
			if relation != "" {
				opts.Relations = []graph.Relation{graph.Relation(relation)}
			}
			if maxNodes > 0 {
				opts.MaxNodes = maxNodes
			}

			out, err := service.Visualize(cmd.Context(), args[0],
				visualization.OutputFormat(format), &opts)
			if err != nil {
				return err
			}
			if outputPath != "" {
				return os.WriteFile(outputPath, []byte(out), 0o644)
			}
			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "mermaid", "Output format: mermaid, dot, d3, or html")
	cmd.Flags().StringVar(&relation, "relation", "", "Restrict to one relation: contains, imports, or calls")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "Node cap for the diagram")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the diagram to a file")
	return cmd
}
