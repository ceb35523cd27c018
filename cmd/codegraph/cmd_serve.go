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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/codegraph/services/codegraph"
	"github.com/AleutianAI/codegraph/services/codegraph/mcpserver"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the code graph HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debugMode {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			// Trace context flows in from W3C TraceContext headers.
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			shutdownTelemetry := setupTelemetry()
			defer shutdownTelemetry()

			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			handlers := codegraph.NewHandlers(service)

			router := gin.New()
			router.Use(gin.Recovery())
			router.Use(otelgin.Middleware("codegraph"))
			if debugMode {
				router.Use(gin.Logger())
			}

			v1 := router.Group("/v1")
			codegraph.RegisterRoutes(v1, handlers)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-quit
				slog.Info("shutting down codegraph server")
				store.Close()
				shutdownTelemetry()
				os.Exit(0)
			}()

			addr := fmt.Sprintf(":%d", port)
			slog.Info("starting codegraph server",
				slog.String("address", addr),
				slog.String("db_path", dbPath))
			return router.Run(addr)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	return cmd
}

// setupTelemetry installs stdout trace and metric exporters when
// CODEGRAPH_TELEMETRY_STDOUT is set. Without it, spans and metrics stay
// no-op.
func setupTelemetry() func() {
	if os.Getenv("CODEGRAPH_TELEMETRY_STDOUT") == "" {
		return func() {}
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		slog.Warn("stdout trace exporter unavailable", slog.String("error", err.Error()))
		return func() {}
	}
	metricExporter, err := stdoutmetric.New()
	if err != nil {
		slog.Warn("stdout metric exporter unavailable", slog.String("error", err.Error()))
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(
		sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("trace provider shutdown failed", slog.String("error", err.Error()))
		}
		if err := mp.Shutdown(ctx); err != nil {
			slog.Warn("meter provider shutdown failed", slog.String("error", err.Error()))
		}
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve code graph tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// MCP uses stdout for the protocol; keep logs on stderr only.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

			service, store, err := openService()
			if err != nil {
				return err
			}
			defer store.Close()

			server, err := mcpserver.NewServer(service)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("codegraph MCP server listening on stdio",
				slog.String("db_path", dbPath))
			return server.Run(ctx)
		},
	}
}
