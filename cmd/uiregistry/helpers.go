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
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/cmd/uiregistry/internal/config"
	"github.com/AleutianAI/uiregistry/pkg/ux"
	"github.com/AleutianAI/uiregistry/services/depgraph"
)

// newAnalyzer wires an analyzer from the loaded configuration and the
// manifests and path aliases discovered below its root.
func newAnalyzer() (*depgraph.Analyzer, error) {
	manifests, err := config.LoadManifests(cfg.Root, cfg.SkipDirs)
	if err != nil {
		return nil, fmt.Errorf("loading manifests: %w", err)
	}

	mappings, source, err := config.LoadPathMappings(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("loading path aliases: %w", err)
	}
	if source != "" {
		logger.Debug("path aliases loaded", "file", source, "count", len(mappings))
	}

	return depgraph.NewAnalyzer(depgraph.Options{
		Root:           cfg.Root,
		Extensions:     cfg.Extensions,
		SkipDirs:       cfg.SkipDirs,
		ContentPattern: cfg.ContentPattern,
		Manifests:      manifests,
		PathMappings:   mappings,
		Registries:     cfg.KnownRegistries(),
		Logger:         logger,
	})
}

// analyze runs one full analysis behind a spinner.
func analyze(ctx context.Context, p *ux.Printer) (*depgraph.Result, error) {
	analyzer, err := newAnalyzer()
	if err != nil {
		return nil, err
	}

	var result *depgraph.Result
	err = p.WithSpinner("Analyzing "+analyzer.Root(), func() error {
		var runErr error
		result, runErr = analyzer.Analyze(ctx)
		return runErr
	})
	return result, err
}

// printerFor returns a printer for the command's output. Progress lines
// go to stderr so JSON on stdout stays parseable.
func printerFor(cmd *cobra.Command) (out *ux.Printer, progress *ux.Printer) {
	return ux.NewPrinter(cmd.OutOrStdout()), ux.NewPrinter(cmd.ErrOrStderr())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
