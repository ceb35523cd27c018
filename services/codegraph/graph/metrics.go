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

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph construction.
var (
	tracer = otel.Tracer("codegraph.graph")
	meter  = otel.Meter("codegraph.graph")
)

var (
	buildLatency   metric.Float64Histogram
	buildTotal     metric.Int64Counter
	filesProcessed metric.Int64Counter
	filesSkipped   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"codegraph_build_duration_seconds",
			metric.WithDescription("Duration of graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"codegraph_build_total",
			metric.WithDescription("Total number of graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesProcessed, err = meter.Int64Counter(
			"codegraph_build_files_processed_total",
			metric.WithDescription("Source files successfully extracted"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		filesSkipped, err = meter.Int64Counter(
			"codegraph_build_files_skipped_total",
			metric.WithDescription("Source files skipped due to read or parse failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a completed build.
func recordBuildMetrics(ctx context.Context, duration time.Duration, stats BuildStats, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	filesProcessed.Add(ctx, int64(stats.FilesProcessed))
	filesSkipped.Add(ctx, int64(stats.FilesSkipped))
}

// startBuildSpan creates a span for a graph build. Caller must End it.
func startBuildSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build",
		trace.WithAttributes(attribute.String("graph.root", root)),
	)
}

// setBuildSpanResult sets result attributes on a build span.
func setBuildSpanResult(span trace.Span, g *Graph, stats BuildStats) {
	span.SetAttributes(
		attribute.Int("graph.nodes", g.NodeCount()),
		attribute.Int("graph.edges", g.EdgeCount()),
		attribute.Int("graph.files_processed", stats.FilesProcessed),
		attribute.Int("graph.files_skipped", stats.FilesSkipped),
	)
}
