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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/ux"
	"github.com/AleutianAI/uiregistry/services/depgraph"
	"github.com/AleutianAI/uiregistry/services/depgraph/scan"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze whenever sources change",
	Long: `Watch the root for changes and re-run the analysis after each quiet
period. Every run rescans from scratch.

Changes to package.json, tsconfig.json, jsconfig.json and
uiregistry.yaml also trigger a run; manifests and aliases are reloaded
each time.

Press Ctrl+C to stop.

Examples:
  uiregistry watch
  uiregistry watch --debounce 500ms`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond,
		"Quiet period before re-analyzing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, progress := printerFor(cmd)

	result, err := analyze(ctx, progress)
	if err != nil {
		return err
	}
	reportRun(out, result)

	handler := func(ctx context.Context, changes []scan.Change) {
		logger.Info("changes detected", "count", len(changes))
		for _, c := range changes {
			logger.Debug("change", "path", c.Path, "op", c.Op.String())
		}
		result, err := analyze(ctx, progress)
		if err != nil {
			out.Error(err.Error())
			return
		}
		reportRun(out, result)
	}

	watcher, err := scan.NewWatcher(result.Root, handler, scan.WatcherOptions{
		Debounce:   watchDebounce,
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

	out.Info(fmt.Sprintf("watching %s (Ctrl+C to stop)", result.Root))
	<-ctx.Done()
	return nil
}

func reportRun(p *ux.Printer, result *depgraph.Result) {
	gs := result.Graph.Stats()
	p.Summary(
		ux.Count{Label: "files", Value: result.ScanStats.Files},
		ux.Count{Label: "imports", Value: gs.Edges},
		ux.Count{Label: "unresolved", Value: gs.UnresolvedEdges},
		ux.Count{Label: "candidates", Value: gs.Candidates},
	)
}
