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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/ux"
)

var scanJSONOutput bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the root and report graph statistics",
	Long: `Scan every source file below the root, classify its imports and
annotate import counts.

With --json the annotated tree is printed: directories and files with
their classified imports and incoming import counts.

Examples:
  uiregistry scan
  uiregistry scan --root ./packages/ui --json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSONOutput, "json", false,
		"Print the annotated tree as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	out, progress := printerFor(cmd)

	result, err := analyze(cmd.Context(), progress)
	if err != nil {
		return err
	}

	if scanJSONOutput {
		return writeJSON(out.Writer(), result.Tree)
	}

	gs := result.Graph.Stats()
	out.Box("Root", result.Root)
	if gs.UnresolvedEdges > 0 {
		out.Warning("some relative or aliased imports matched no scanned file (run with --verbose for details)")
	}
	if gs.ApproximateContentEdges > 0 {
		out.Warning("some content files were matched heuristically")
	}
	out.Summary(
		ux.Count{Label: "directories", Value: result.ScanStats.Directories},
		ux.Count{Label: "files", Value: result.ScanStats.Files},
		ux.Count{Label: "imports", Value: gs.Edges},
		ux.Count{Label: "resolved", Value: gs.ResolvedEdges},
		ux.Count{Label: "unresolved", Value: gs.UnresolvedEdges},
		ux.Count{Label: "external", Value: gs.ExternalEdges},
		ux.Count{Label: "content", Value: gs.ContentEdges},
		ux.Count{Label: "candidates", Value: gs.Candidates},
	)
	return nil
}
