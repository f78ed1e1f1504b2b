// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/uiregistry/services/depgraph"
	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
	"github.com/AleutianAI/uiregistry/services/depgraph/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func analyzeFixture(t *testing.T) *depgraph.Result {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"widget.ts":         "import { helper } from \"./helper\";\nimport pad from \"left-pad\";\n",
		"helper.ts":         "export const helper = 1;\n",
		"widget.content.ts": "export default {};\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}

	analyzer, err := depgraph.NewAnalyzer(depgraph.Options{
		Root: root,
		Manifests: []model.Manifest{{
			Dir:          ".",
			Dependencies: map[string]string{"left-pad": "1.0.0"},
		}},
	})
	require.NoError(t, err)
	result, err := analyzer.Analyze(context.Background())
	require.NoError(t, err)
	return result
}

func setupTestRouter(h *Handlers) *gin.Engine {
	return NewRouter(h, nil, false)
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(NewHandlers(nil))

	w := get(t, router, "/v1/uiregistry/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandlers_NotReady(t *testing.T) {
	router := setupTestRouter(NewHandlers(nil))

	w := get(t, router, "/v1/uiregistry/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	for _, url := range []string{
		"/v1/uiregistry/tree",
		"/v1/uiregistry/stats",
		"/v1/uiregistry/candidates",
		"/v1/uiregistry/closure?path=widget.ts",
		"/v1/uiregistry/items",
	} {
		w := get(t, router, url)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, url)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeNotReady, resp.Code, url)
	}
}

func TestHandlers_Ready(t *testing.T) {
	h := NewHandlers(nil)
	result := analyzeFixture(t)
	h.SetResult(result)
	assert.Same(t, result, h.Result())

	w := get(t, setupTestRouter(h), "/v1/uiregistry/ready")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, result.Root, resp.Root)
}

func TestHandlers_HandleCandidates(t *testing.T) {
	h := NewHandlers(nil)
	h.SetResult(analyzeFixture(t))

	w := get(t, setupTestRouter(h), "/v1/uiregistry/candidates")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []Candidate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	paths := make([]string, 0, len(resp))
	for _, c := range resp {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"widget.content.ts", "widget.ts"}, paths)
	assert.Equal(t, []string{"widget.content.ts"}, resp[1].Content)
	assert.Equal(t, "lib", resp[1].Type)
}

func TestHandlers_HandleClosure(t *testing.T) {
	h := NewHandlers(nil)
	h.SetResult(analyzeFixture(t))
	router := setupTestRouter(h)

	t.Run("ok", func(t *testing.T) {
		w := get(t, router, "/v1/uiregistry/closure?path=widget")
		require.Equal(t, http.StatusOK, w.Code)

		var resp graph.Closure
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "widget.ts", resp.Candidate)
		assert.Equal(t, []string{"left-pad@1.0.0"}, resp.Dependencies)
		assert.Equal(t, []string{"helper.ts", "widget.content.ts", "widget.ts"}, resp.FileDependencies)
	})

	t.Run("cached", func(t *testing.T) {
		s := h.current.Load()
		_, hit := s.closures.Get("widget")
		require.True(t, hit)

		w := get(t, router, "/v1/uiregistry/closure?path=widget")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"candidate":"widget.ts"`)
	})

	t.Run("cache reset on publish", func(t *testing.T) {
		h.SetResult(h.Result())
		assert.Equal(t, 0, h.current.Load().closures.Len())
	})

	t.Run("missing path", func(t *testing.T) {
		w := get(t, router, "/v1/uiregistry/closure")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		w := get(t, router, "/v1/uiregistry/closure?path=nope.ts")
		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, CodeFileNotFound, resp.Code)
	})
}

func TestHandlers_HandleItems(t *testing.T) {
	h := NewHandlers(nil)
	h.SetResult(analyzeFixture(t))
	router := setupTestRouter(h)

	w := get(t, router, "/v1/uiregistry/items?path=widget.ts")
	require.Equal(t, http.StatusOK, w.Code)

	var items []registry.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "widget", items[0].Name)
	assert.Len(t, items[0].Files, 3)

	w = get(t, router, "/v1/uiregistry/items")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)
}

func TestHandlers_HandleTreeAndStats(t *testing.T) {
	h := NewHandlers(nil)
	h.SetResult(analyzeFixture(t))
	router := setupTestRouter(h)

	w := get(t, router, "/v1/uiregistry/tree")
	require.Equal(t, http.StatusOK, w.Code)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tree))
	assert.Equal(t, "directory", tree["type"])

	w = get(t, router, "/v1/uiregistry/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Scan.Files)
	assert.Equal(t, 2, stats.Graph.Candidates)
	assert.Equal(t, 1, stats.Graph.ContentEdges)
}

func TestNewRouter_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("uiregistry_up 1\n"))
	})
	router := NewRouter(NewHandlers(nil), metrics, false)

	w := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uiregistry_up")

	w = get(t, NewRouter(NewHandlers(nil), nil, false), "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
