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
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/telemetry"
	"github.com/AleutianAI/uiregistry/services/depgraph/api"
	"github.com/AleutianAI/uiregistry/services/depgraph/scan"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over HTTP",
	Long: `Analyze the root and serve the result as JSON. Unless --no-watch is
given, the root is watched and the served result is replaced after every
rescan.

Endpoints:
  GET /v1/uiregistry/health
  GET /v1/uiregistry/ready
  GET /v1/uiregistry/tree
  GET /v1/uiregistry/stats
  GET /v1/uiregistry/candidates
  GET /v1/uiregistry/closure?path=FILE
  GET /v1/uiregistry/items[?path=FILE...]
  GET /v1/uiregistry/events (websocket, one message per analysis)
  GET /metrics (when telemetry.metrics is "prometheus")

Examples:
  uiregistry serve
  uiregistry serve --addr localhost:9000 --no-watch
  OTEL_METRICS_EXPORTER=prometheus uiregistry serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"Listen address (overrides the config serve.addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false,
		"Serve the first analysis only")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, progress := printerFor(cmd)

	addr := cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	if verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := api.NewHandlers(logger)
	router := api.NewRouter(handlers, telemetry.MetricsHandler(), verbose)

	// Listen first; /ready answers 503 until the first analysis is published.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", "error", err)
		}
	}()
	logger.Info("server listening", "addr", listener.Addr().String())

	result, err := analyze(ctx, progress)
	if err != nil {
		return err
	}
	handlers.SetResult(result)
	reportRun(out, result)

	if !serveNoWatch {
		watcher, err := scan.NewWatcher(result.Root, func(ctx context.Context, changes []scan.Change) {
			logger.Info("changes detected", "count", len(changes))
			next, err := analyze(ctx, progress)
			if err != nil {
				logger.Error("rescan failed, keeping previous result", "error", err)
				return
			}
			handlers.SetResult(next)
			reportRun(out, next)
		}, scan.WatcherOptions{
			Extensions: cfg.Extensions,
			SkipDirs:   cfg.SkipDirs,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	out.Info(fmt.Sprintf("serving %s on http://%s (Ctrl+C to stop)", result.Root, listener.Addr()))
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	}
}
