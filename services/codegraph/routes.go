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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all code graph routes with the router.
//
// Description:
//
//	Registers all /v1/codegraph/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/codegraph/build - Extract a graph without persisting
//	POST   /v1/codegraph/graphs - Extract, enrich, and store a graph
//	GET    /v1/codegraph/graphs - List stored graphs
//	GET    /v1/codegraph/graphs/:id - Get a stored graph
//	DELETE /v1/codegraph/graphs/:id - Delete a stored graph
//	GET    /v1/codegraph/graphs/:id/visualize - Render a diagram
//	POST   /v1/codegraph/search - Semantic search over indexed graphs
//	GET    /v1/codegraph/health - Health check
//	GET    /v1/codegraph/ready - Readiness check
//
// Example:
//
//	service, _ := codegraph.NewService(codegraph.ServiceConfig{Store: store})
//	handlers := codegraph.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	codegraph.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cg := rg.Group("/codegraph")
	{
		// Extraction
		cg.POST("/build", handlers.HandleBuild)

		// Stored graph lifecycle
		cg.POST("/graphs", handlers.HandleStore)
		cg.GET("/graphs", handlers.HandleList)
		cg.GET("/graphs/:id", handlers.HandleGet)
		cg.DELETE("/graphs/:id", handlers.HandleDelete)
		cg.GET("/graphs/:id/visualize", handlers.HandleVisualize)

		// Search
		cg.POST("/search", handlers.HandleSearch)

		// Health checks
		cg.GET("/health", handlers.HandleHealth)
		cg.GET("/ready", handlers.HandleReady)
	}
}
