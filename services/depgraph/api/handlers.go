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
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph"
	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
)

// Handlers serves queries against the most recently published Result.
//
// Thread Safety:
//
//	SetResult and every handler may run concurrently. A Result is
//	read-only once published.
type Handlers struct {
	current atomic.Pointer[snapshot]
	events  *broadcaster
	logger  *logging.Logger
}

// closureCacheSize bounds the closures kept per published result.
const closureCacheSize = 1024

// snapshot is one published result with its closure cache. Cached
// closures are only valid for the result they were computed from.
type snapshot struct {
	result   *depgraph.Result
	closures *lru.Cache[string, *graph.Closure]
}

// NewHandlers creates handlers with no published result. A nil logger
// disables logging.
func NewHandlers(logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handlers{events: newBroadcaster(), logger: logger}
}

// SetResult publishes r for subsequent requests and notifies event
// subscribers.
func (h *Handlers) SetResult(r *depgraph.Result) {
	closures, err := lru.New[string, *graph.Closure](closureCacheSize)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	h.current.Store(&snapshot{result: r, closures: closures})
	h.events.publish(r)
}

// Result returns the published result, or nil.
func (h *Handlers) Result() *depgraph.Result {
	if s := h.current.Load(); s != nil {
		return s.result
	}
	return nil
}

// load returns the published snapshot or writes a 503.
func (h *Handlers) load(c *gin.Context) (*snapshot, bool) {
	s := h.current.Load()
	if s == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "analysis not ready",
			Code:  CodeNotReady,
		})
		return nil, false
	}
	return s, true
}

// result returns the published result or writes a 503.
func (h *Handlers) result(c *gin.Context) (*depgraph.Result, bool) {
	s, ok := h.load(c)
	if !ok {
		return nil, false
	}
	return s.result, true
}

// HandleHealth handles GET /v1/uiregistry/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/uiregistry/ready.
//
// Response:
//
//	200 OK: ReadyResponse (Ready=true) - a result is published
//	503 Service Unavailable: ReadyResponse (Ready=false) - first scan running
func (h *Handlers) HandleReady(c *gin.Context) {
	r := h.Result()
	if r == nil {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{Ready: false})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Ready: true, Root: r.Root})
}

// HandleTree handles GET /v1/uiregistry/tree.
func (h *Handlers) HandleTree(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r.Tree)
}

// HandleStats handles GET /v1/uiregistry/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		Root:  r.Root,
		Scan:  r.ScanStats,
		Graph: r.Graph.Stats(),
	})
}

// HandleCandidates handles GET /v1/uiregistry/candidates.
func (h *Handlers) HandleCandidates(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, CandidateList(r))
}

// HandleClosure handles GET /v1/uiregistry/closure?path=src/card.tsx.
//
// Response:
//
//	200 OK: graph.Closure
//	400 Bad Request: path missing
//	404 Not Found: path not indexed
func (h *Handlers) HandleClosure(c *gin.Context) {
	s, ok := h.load(c)
	if !ok {
		return
	}

	p := c.Query("path")
	if p == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query parameter 'path' is required",
			Code:  CodeMissingParam,
		})
		return
	}

	if closure, hit := s.closures.Get(p); hit {
		c.JSON(http.StatusOK, closure)
		return
	}
	closure, err := s.result.Closure(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	s.closures.Add(p, closure)
	c.JSON(http.StatusOK, closure)
}

// HandleItems handles GET /v1/uiregistry/items.
//
// With one or more ?path= parameters only those candidates are shaped;
// otherwise every candidate is.
func (h *Handlers) HandleItems(c *gin.Context) {
	r, ok := h.result(c)
	if !ok {
		return
	}

	items, err := r.Items(c.Request.Context(), c.QueryArray("path")...)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	if errors.Is(err, graph.ErrFileNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeFileNotFound})
		return
	}
	h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
}
