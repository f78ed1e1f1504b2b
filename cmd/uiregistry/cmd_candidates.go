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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/ux"
	"github.com/AleutianAI/uiregistry/services/depgraph/api"
)

var candidatesJSONOutput bool

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List files that nothing imports",
	Long: `List component candidates: scanned files with no incoming imports.

Content files matched to a candidate are shown as a note on that
candidate.

Examples:
  uiregistry candidates
  uiregistry candidates --json`,
	Args: cobra.NoArgs,
	RunE: runCandidates,
}

func init() {
	candidatesCmd.Flags().BoolVar(&candidatesJSONOutput, "json", false,
		"Output as JSON for scripting")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	out, progress := printerFor(cmd)

	result, err := analyze(cmd.Context(), progress)
	if err != nil {
		return err
	}

	views := api.CandidateList(result)

	if candidatesJSONOutput {
		return writeJSON(out.Writer(), views)
	}

	out.Title(fmt.Sprintf("Candidates in %s", result.Root))
	for _, v := range views {
		var notes []string
		if len(v.Content) > 0 {
			notes = append(notes, fmt.Sprintf("%d content file(s)", len(v.Content)))
		}
		out.Row(ux.IconBullet, []string{v.Path, v.Type}, notes...)
	}
	out.Summary(
		ux.Count{Label: "files", Value: result.ScanStats.Files},
		ux.Count{Label: "candidates", Value: len(views)},
	)
	return nil
}
