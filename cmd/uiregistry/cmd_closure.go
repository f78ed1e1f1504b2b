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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/pkg/ux"
	"github.com/AleutianAI/uiregistry/services/depgraph"
	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
)

var (
	closureJSONOutput  bool
	closureAll         bool
	closureInteractive bool
)

// errNoSelection is returned when neither files nor a selection mode is given.
var errNoSelection = errors.New("pass one or more files, --all or --interactive")

var closureCmd = &cobra.Command{
	Use:   "closure [FILE...]",
	Short: "Show what a candidate pulls in transitively",
	Long: `Compute the closure of one or more files: every local file reached
through resolved imports and content associations, plus the npm and
registry dependencies met along the way.

FILE is a root-relative path. The extension and a trailing /index may be
omitted.

Examples:
  uiregistry closure src/components/card.tsx
  uiregistry closure src/components/card --json
  uiregistry closure --all
  uiregistry closure --interactive`,
	RunE: runClosure,
}

func init() {
	closureCmd.Flags().BoolVar(&closureJSONOutput, "json", false,
		"Output as JSON for scripting")
	closureCmd.Flags().BoolVar(&closureAll, "all", false,
		"Compute the closure of every candidate")
	closureCmd.Flags().BoolVarP(&closureInteractive, "interactive", "i", false,
		"Pick candidates from a list")
	closureCmd.MarkFlagsMutuallyExclusive("all", "interactive")
}

func runClosure(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !closureAll && !closureInteractive {
		return errNoSelection
	}
	out, progress := printerFor(cmd)

	result, err := analyze(cmd.Context(), progress)
	if err != nil {
		return err
	}

	paths := args
	if closureInteractive {
		paths, err = selectCandidates(result)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			out.Warning("nothing selected")
			return nil
		}
	}

	closures, err := result.Closures(cmd.Context(), paths...)
	if err != nil {
		return err
	}

	if closureJSONOutput {
		return writeJSON(out.Writer(), closures)
	}
	for _, c := range closures {
		printClosure(out, c)
	}
	return nil
}

// selectCandidates asks the user to pick candidates from a multi-select.
func selectCandidates(result *depgraph.Result) ([]string, error) {
	if !ux.IsTerminal(os.Stdin) {
		return nil, errors.New("--interactive requires a terminal")
	}

	candidates := result.Candidates()
	options := make([]huh.Option[string], 0, len(candidates))
	for _, f := range candidates {
		options = append(options, huh.NewOption(f.Path, f.Path))
	}

	var selected []string
	err := huh.NewMultiSelect[string]().
		Title("Candidates").
		Description("space to toggle, enter to confirm").
		Options(options...).
		Value(&selected).
		Run()
	if err != nil {
		return nil, fmt.Errorf("selecting candidates: %w", err)
	}
	return selected, nil
}

func printClosure(p *ux.Printer, c *graph.Closure) {
	p.Title(c.Candidate)
	for _, f := range c.Files {
		p.Row(ux.IconArrow, []string{"file", f.Path, f.Type})
	}
	for _, d := range c.Dependencies {
		p.Row(ux.IconBullet, []string{"dependency", d})
	}
	for _, d := range c.DevDependencies {
		p.Row(ux.IconBullet, []string{"devDependency", d})
	}
	for _, d := range c.RegistryDependencies {
		p.Row(ux.IconBullet, []string{"registryDependency", d})
	}
	if c.Approximate {
		var approx []string
		for _, e := range c.ContentEdges {
			if e.Approximate {
				approx = append(approx, e.Target)
			}
		}
		p.Warning(fmt.Sprintf("%s: content matched heuristically: %s", c.Candidate, strings.Join(approx, ", ")))
	}
	p.Summary(
		ux.Count{Label: "files", Value: len(c.Files)},
		ux.Count{Label: "dependencies", Value: len(c.Dependencies)},
		ux.Count{Label: "devDependencies", Value: len(c.DevDependencies)},
		ux.Count{Label: "registryDependencies", Value: len(c.RegistryDependencies)},
	)
}
