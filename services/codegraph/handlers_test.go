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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	badgerstore "github.com/AleutianAI/codegraph/services/codegraph/storage/badger"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := badgerstore.NewInMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	service, err := NewService(ServiceConfig{Store: store})
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(service))
	return router
}

func writePythonProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	source := `def process(data):
    """Process the data.

    Args:
        data: Raw rows.
    """
    return helper(data)

def helper(data):
    return data
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte(source), 0o644))
	return dir
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleBuild(t *testing.T) {
	router := testRouter(t)

	t.Run("returns graph inline", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/codegraph/build",
			BuildRequest{Directory: writePythonProject(t)})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp BuildResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Graph.NodeCount)
		assert.Equal(t, 3, resp.Graph.EdgeCount)
		assert.Equal(t, 1, resp.Stats.FilesProcessed)
	})

	t.Run("missing directory", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/codegraph/build", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("nonexistent directory", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/codegraph/build",
			BuildRequest{Directory: "/does/not/exist"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_DIRECTORY", resp.Code)
	})
}

func TestGraphLifecycle(t *testing.T) {
	router := testRouter(t)
	dir := writePythonProject(t)

	w := doJSON(t, router, http.MethodPost, "/v1/codegraph/graphs",
		BuildRequest{Directory: dir, ProjectName: "demo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stored StoreResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	require.NotEmpty(t, stored.GraphID)
	assert.Equal(t, 3, stored.NodeCount)

	t.Run("list includes stored graph", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/codegraph/graphs", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Graphs, 1)
		assert.Equal(t, "demo", resp.Graphs[0].ProjectName)
	})

	t.Run("get returns full document with enrichment", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/codegraph/graphs/"+stored.GraphID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := w.Body.String()
		assert.Contains(t, body, `"project_name":"demo"`)
		assert.Contains(t, body, "Process the data.")
	})

	t.Run("visualize mermaid", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet,
			fmt.Sprintf("/v1/codegraph/graphs/%s/visualize?format=mermaid", stored.GraphID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "flowchart LR")
		assert.Contains(t, w.Body.String(), "process")
	})

	t.Run("visualize html content type", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet,
			fmt.Sprintf("/v1/codegraph/graphs/%s/visualize?format=html", stored.GraphID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	})

	t.Run("delete then get returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/v1/codegraph/graphs/"+stored.GraphID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/v1/codegraph/graphs/"+stored.GraphID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doJSON(t, router, http.MethodDelete, "/v1/codegraph/graphs/"+stored.GraphID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleGetUnknownGraph(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/codegraph/graphs/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleVisualizeUnknownGraph(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodGet, "/v1/codegraph/graphs/nope/visualize", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSearchUnconfigured(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/codegraph/search",
		SearchRequest{Query: "parse files"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleSearchMissingQuery(t *testing.T) {
	router := testRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/codegraph/search", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/codegraph/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/codegraph/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/codegraph/graphs", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
