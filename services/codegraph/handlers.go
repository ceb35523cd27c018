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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
	"github.com/AleutianAI/codegraph/services/codegraph/vector"
	"github.com/AleutianAI/codegraph/services/codegraph/visualization"
)

// ErrorResponse is the error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handlers holds the HTTP handlers for the code graph service.
type Handlers struct {
	service *Service
}

// NewHandlers creates handlers backed by the given service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the inbound X-Request-ID or creates one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Header("X-Request-ID", id)
	return id
}

// BuildRequest is the body for POST /v1/codegraph/build and
// POST /v1/codegraph/graphs.
type BuildRequest struct {
	// Directory is the root of the Python source tree. Required.
	Directory string `json:"directory" binding:"required"`

	// ProjectName labels the stored graph. Defaults to the directory.
	ProjectName string `json:"project_name"`

	IncludeBuiltins bool `json:"include_builtins"`
	ExcludeStdlib   bool `json:"exclude_stdlib"`
	QualifiedNames  bool `json:"qualified_names"`
}

func (r *BuildRequest) options() BuildOptions {
	return BuildOptions{
		IncludeBuiltins: r.IncludeBuiltins,
		ExcludeStdlib:   r.ExcludeStdlib,
		QualifiedNames:  r.QualifiedNames,
	}
}

// BuildResponse is the body for POST /v1/codegraph/build.
type BuildResponse struct {
	Graph      *graph.Snapshot  `json:"graph"`
	Stats      graph.BuildStats `json:"stats"`
	FileErrors []string         `json:"file_errors,omitempty"`
}

// HandleBuild handles POST /v1/codegraph/build.
//
// Description:
//
//	Extracts a code graph from a directory and returns it inline without
//	persisting anything.
//
// Response:
//
//	200 OK: BuildResponse
//	400 Bad Request: Missing or invalid directory
func (h *Handlers) HandleBuild(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBuild")

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "directory is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	result, err := h.service.BuildGraph(c.Request.Context(), req.Directory, req.options())
	if err != nil {
		if errors.Is(err, graph.ErrInvalidRoot) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "directory does not exist or is not a directory",
				Code:  "INVALID_DIRECTORY",
			})
			return
		}
		logger.Error("build failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "BUILD_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, BuildResponse{
		Graph:      result.Graph.Snapshot(),
		Stats:      result.Stats,
		FileErrors: fileErrorStrings(result.FileErrors),
	})
}

func fileErrorStrings(errs []*graph.FileError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

// StoreResponse is the body for POST /v1/codegraph/graphs.
type StoreResponse struct {
	GraphID    string           `json:"graph_id"`
	NodeCount  int              `json:"node_count"`
	EdgeCount  int              `json:"edge_count"`
	Stats      graph.BuildStats `json:"stats"`
	FileErrors []string         `json:"file_errors,omitempty"`
}

// HandleStore handles POST /v1/codegraph/graphs.
//
// Description:
//
//	Extracts a code graph, enriches function nodes with docstring data
//	and summaries, persists it, and indexes it for semantic search.
//
// Response:
//
//	201 Created: StoreResponse
//	400 Bad Request: Missing or invalid directory
func (h *Handlers) HandleStore(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStore")

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "directory is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}
	if req.ProjectName == "" {
		req.ProjectName = req.Directory
	}

	doc, result, err := h.service.BuildAndStore(c.Request.Context(), req.Directory, req.ProjectName, req.options())
	if err != nil {
		if errors.Is(err, graph.ErrInvalidRoot) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "directory does not exist or is not a directory",
				Code:  "INVALID_DIRECTORY",
			})
			return
		}
		logger.Error("store failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "STORE_FAILED",
		})
		return
	}

	c.JSON(http.StatusCreated, StoreResponse{
		GraphID:    doc.GraphID,
		NodeCount:  doc.NodeCount,
		EdgeCount:  doc.EdgeCount,
		Stats:      result.Stats,
		FileErrors: fileErrorStrings(result.FileErrors),
	})
}

// ListResponse is the body for GET /v1/codegraph/graphs.
type ListResponse struct {
	Graphs []storage.GraphSummary `json:"graphs"`
}

// HandleList handles GET /v1/codegraph/graphs.
func (h *Handlers) HandleList(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleList")

	summaries, err := h.service.ListGraphs(c.Request.Context())
	if err != nil {
		logger.Error("list failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}
	if summaries == nil {
		summaries = []storage.GraphSummary{}
	}
	c.JSON(http.StatusOK, ListResponse{Graphs: summaries})
}

// HandleGet handles GET /v1/codegraph/graphs/:id.
func (h *Handlers) HandleGet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGet")

	doc, err := h.service.GetGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "graph not found",
				Code:  "NOT_FOUND",
			})
			return
		}
		logger.Error("get failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// HandleDelete handles DELETE /v1/codegraph/graphs/:id.
func (h *Handlers) HandleDelete(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDelete")

	graphID := c.Param("id")
	if err := h.service.DeleteGraph(c.Request.Context(), graphID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "graph not found",
				Code:  "NOT_FOUND",
			})
			return
		}
		logger.Error("delete failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DELETE_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": graphID})
}

// SearchRequest is the body for POST /v1/codegraph/search.
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	GraphID string `json:"graph_id"`
	Limit   int    `json:"limit"`
	Explain bool   `json:"explain"`
}

// SearchResponse is the body for POST /v1/codegraph/search.
type SearchResponse struct {
	Hits        []vector.SearchHit `json:"hits"`
	Explanation string             `json:"explanation,omitempty"`
}

// HandleSearch handles POST /v1/codegraph/search.
//
// Response:
//
//	200 OK: SearchResponse
//	400 Bad Request: Missing query
//	503 Service Unavailable: Search backend not configured
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSearch")

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	var (
		hits        []vector.SearchHit
		explanation string
		err         error
	)
	if req.Explain {
		hits, explanation, err = h.service.Explain(c.Request.Context(), req.Query, req.GraphID, req.Limit)
	} else {
		hits, err = h.service.Search(c.Request.Context(), req.Query, req.GraphID, req.Limit)
	}
	if err != nil {
		if h.service.index == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "semantic search is not configured",
				Code:  "SEARCH_UNAVAILABLE",
			})
			return
		}
		logger.Error("search failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "SEARCH_FAILED",
		})
		return
	}
	if hits == nil {
		hits = []vector.SearchHit{}
	}
	c.JSON(http.StatusOK, SearchResponse{Hits: hits, Explanation: explanation})
}

// HandleVisualize handles GET /v1/codegraph/graphs/:id/visualize.
//
// Query Parameters:
//
//	format: mermaid, dot, d3, or html. Default mermaid.
//	relation: restrict to one relation (contains, imports, calls).
//	max_nodes: node cap, default 100.
//	direction: flowchart direction for mermaid/dot, default LR.
//
// Response:
//
//	200 OK: The rendered diagram. Content type depends on format.
//	404 Not Found: Unknown graph ID.
func (h *Handlers) HandleVisualize(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleVisualize")

	format := visualization.OutputFormat(c.DefaultQuery("format", "mermaid"))

	opts := visualization.DefaultGraphOptions()
	if rel := c.Query("relation"); rel != "" {
		opts.Relations = []graph.Relation{graph.Relation(rel)}
	}
	if maxStr := c.Query("max_nodes"); maxStr != "" {
		if parsed, err := strconv.Atoi(maxStr); err == nil && parsed > 0 {
			opts.MaxNodes = parsed
		}
	}
	if dir := c.Query("direction"); dir != "" {
		opts.Direction = dir
	}

	out, err := h.service.Visualize(c.Request.Context(), c.Param("id"), format, &opts)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "graph not found",
				Code:  "NOT_FOUND",
			})
			return
		}
		logger.Error("visualize failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VISUALIZE_FAILED",
		})
		return
	}

	switch format {
	case visualization.FormatHTML:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
	case visualization.FormatD3:
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(out))
	default:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out))
	}
}

// HandleHealth handles GET /v1/codegraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/codegraph/ready.
//
// Description:
//
//	Ready when the store answers a listing call.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, err := h.service.ListGraphs(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
