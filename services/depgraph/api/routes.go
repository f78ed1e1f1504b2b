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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /uiregistry endpoints on rg.
//
// Endpoints:
//
//	GET /v1/uiregistry/health     - Liveness
//	GET /v1/uiregistry/ready      - 503 until the first analysis is published
//	GET /v1/uiregistry/tree       - Annotated directory tree
//	GET /v1/uiregistry/stats      - Scan and graph statistics
//	GET /v1/uiregistry/candidates - Component candidates
//	GET /v1/uiregistry/closure    - Closure of ?path=
//	GET /v1/uiregistry/items      - Registry items for ?path=... or all candidates
//	GET /v1/uiregistry/events     - Websocket stream of analysis events
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	r := rg.Group("/uiregistry")
	{
		r.GET("/health", handlers.HandleHealth)
		r.GET("/ready", handlers.HandleReady)

		r.GET("/tree", handlers.HandleTree)
		r.GET("/stats", handlers.HandleStats)
		r.GET("/candidates", handlers.HandleCandidates)
		r.GET("/closure", handlers.HandleClosure)
		r.GET("/items", handlers.HandleItems)

		r.GET("/events", handlers.HandleEvents)
	}
}

// NewRouter builds the engine: recovery, request tracing, the /v1 routes
// and, when metrics is non-nil, GET /metrics.
func NewRouter(handlers *Handlers, metrics http.Handler, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("uiregistry"))
	if debug {
		router.Use(gin.Logger())
	}

	RegisterRoutes(router.Group("/v1"), handlers)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
