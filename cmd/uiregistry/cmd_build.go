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
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/ux"
	"github.com/AleutianAI/uiregistry/services/depgraph/registry"
)

var buildOutputDir string

var buildCmd = &cobra.Command{
	Use:   "build [FILE...]",
	Short: "Write registry item JSON for candidates",
	Long: `Compute closures and write one registry item per candidate, plus an
index.json listing them.

With no FILE arguments every candidate is built. Items whose closure used
a heuristic content match are written with "approximate": true and
reported as warnings.

Examples:
  uiregistry build
  uiregistry build --out dist/registry
  uiregistry build src/components/card.tsx`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOutputDir, "out", "o", "",
		"Output directory (overrides the config output_dir)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	out, progress := printerFor(cmd)

	result, err := analyze(cmd.Context(), progress)
	if err != nil {
		return err
	}

	items, err := result.Items(cmd.Context(), args...)
	if err != nil {
		return err
	}

	dir := cfg.OutputDir
	if buildOutputDir != "" {
		dir = buildOutputDir
	}
	writer, err := registry.NewJSONWriter(dir, logger)
	if err != nil {
		return err
	}
	written, err := writer.Write(cmd.Context(), items)
	if err != nil {
		return err
	}

	approximate := 0
	for _, it := range items {
		if it.Approximate {
			approximate++
			out.Warning(fmt.Sprintf("%s: content matched heuristically, review before publishing", it.Name))
		}
	}
	for _, p := range written {
		if rel, relErr := filepath.Rel(dir, p); relErr == nil {
			p = rel
		}
		out.Row(ux.IconSuccess, []string{p})
	}
	out.Success(fmt.Sprintf("wrote %d item(s) to %s", len(items), dir))
	out.Summary(
		ux.Count{Label: "items", Value: len(items)},
		ux.Count{Label: "approximate", Value: approximate},
	)
	return nil
}
