// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph resolves import edges between scanned files and answers
// candidate and closure queries.
//
// # Phases
//
// Annotate runs strictly after the scan is complete and is sequential:
//
//  1. Index: register up to three lookup keys per file.
//  2. Resolve: compute each edge's distinct target files.
//  3. Count: reset every ImportCount to zero, then add one per distinct
//     target per edge.
//
// MatchContent then links content files to their owners, and Closure
// walks resolved and content edges on demand.
//
// # Thread Safety
//
// A Graph is not modified after Annotate and MatchContent return. Closure
// and the query methods are safe for concurrent use once both have run.
package graph

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"time"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// DefaultContentPattern matches content files such as "card.content.ts".
const DefaultContentPattern = `\.content\.[cm]?[jt]sx?$`

// CompileContentPattern compiles a content file pattern. The empty string
// selects DefaultContentPattern.
func CompileContentPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = DefaultContentPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContentPattern, err)
	}
	return re, nil
}

// Option configures Annotate.
type Option func(*options)

type options struct {
	contentPattern *regexp.Regexp
	logger         *logging.Logger
}

// WithContentPattern sets the pattern that identifies content files.
func WithContentPattern(re *regexp.Regexp) Option {
	return func(o *options) {
		if re != nil {
			o.contentPattern = re
		}
	}
}

// WithLogger sets the logger for unresolved edges and heuristic matches.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Stats summarizes an annotated graph.
type Stats struct {
	// Files is the number of indexed files.
	Files int `json:"files"`

	// Edges is the total number of import edges.
	Edges int `json:"edges"`

	// ResolvedEdges had at least one target in the index.
	ResolvedEdges int `json:"resolvedEdges"`

	// UnresolvedEdges had a relative or alias candidate that matched no
	// indexed file.
	UnresolvedEdges int `json:"unresolvedEdges"`

	// ExternalEdges had neither a relative specifier nor an alias match.
	ExternalEdges int `json:"externalEdges"`

	// ContentEdges is the number of content associations.
	ContentEdges int `json:"contentEdges"`

	// ApproximateContentEdges were produced by the fallback heuristic.
	ApproximateContentEdges int `json:"approximateContentEdges"`

	// Candidates is the number of files with no importers.
	Candidates int `json:"candidates"`

	// Duration is the time spent in Annotate.
	Duration time.Duration `json:"duration"`
}

// resolvedEdge pairs an import edge with its distinct target files.
type resolvedEdge struct {
	edge    *model.ImportEdge
	targets []*model.File
}

// Graph is the annotated dependency graph of one scan.
type Graph struct {
	root    *model.Directory
	files   []*model.File
	index   *Index
	out     map[string][]resolvedEdge
	content map[string][]ContentEdge

	contentPattern *regexp.Regexp
	logger         *logging.Logger
	stats          Stats
}

// Annotate indexes the tree, resolves every edge and recomputes every
// file's ImportCount from zero.
//
// Description:
//
//	An edge's target candidates are its ResolvedPaths plus, for a relative
//	specifier, the specifier joined with the importing file's directory.
//	Each distinct indexed target gets one count per edge. Candidates that
//	match nothing are dropped; they are counted in Stats and logged at
//	debug level, never returned as errors.
//
// Inputs:
//   - ctx: Checked between files for cancellation.
//   - root: The scanned tree. Its files' ImportCount is overwritten.
//   - opts: Content pattern and logger.
//
// Outputs:
//   - *Graph: Ready for Candidates and, after MatchContent, Closure.
//   - error: ErrNilTree or a context error.
func Annotate(ctx context.Context, root *model.Directory, opts ...Option) (*Graph, error) {
	if root == nil {
		return nil, ErrNilTree
	}

	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.contentPattern == nil {
		o.contentPattern = regexp.MustCompile(DefaultContentPattern)
	}

	start := time.Now()
	ctx, span := startAnnotateSpan(ctx)
	defer span.End()

	files := model.Files(root)
	g := &Graph{
		root:           root,
		files:          files,
		index:          NewIndex(files),
		out:            make(map[string][]resolvedEdge, len(files)),
		content:        make(map[string][]ContentEdge),
		contentPattern: o.contentPattern,
		logger:         o.logger,
	}
	g.stats.Files = len(files)

	for _, f := range files {
		f.Meta.ImportCount = 0
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			setAnnotateSpanResult(span, g.stats, err)
			return nil, err
		}
		g.resolveFile(f)
	}

	for _, f := range files {
		if f.Meta.ImportCount == 0 {
			g.stats.Candidates++
		}
	}
	g.stats.Duration = time.Since(start)

	setAnnotateSpanResult(span, g.stats, nil)
	recordAnnotateMetrics(ctx, g.stats)
	g.logger.Debug("graph annotated",
		"files", g.stats.Files,
		"edges", g.stats.Edges,
		"resolved", g.stats.ResolvedEdges,
		"unresolved", g.stats.UnresolvedEdges,
		"candidates", g.stats.Candidates)

	return g, nil
}

// resolveFile resolves and counts the edges of one importer.
func (g *Graph) resolveFile(f *model.File) {
	resolved := make([]resolvedEdge, 0, len(f.Imports))
	for i := range f.Imports {
		edge := &f.Imports[i]
		g.stats.Edges++

		candidates := edgeCandidates(f, edge)
		if len(candidates) == 0 {
			g.stats.ExternalEdges++
			resolved = append(resolved, resolvedEdge{edge: edge})
			continue
		}

		seen := make(map[string]bool, len(candidates))
		var targets []*model.File
		for _, c := range candidates {
			target, ok := g.index.Lookup(c)
			if !ok || seen[target.Path] {
				continue
			}
			seen[target.Path] = true
			targets = append(targets, target)
			target.Meta.ImportCount++
		}

		if len(targets) == 0 {
			g.stats.UnresolvedEdges++
			g.logger.Debug("unresolved import",
				"file", f.Path,
				"line", edge.Line,
				"specifier", edge.ModuleSpecifier)
		} else {
			g.stats.ResolvedEdges++
		}
		resolved = append(resolved, resolvedEdge{edge: edge, targets: targets})
	}
	g.out[f.Path] = resolved
}

// edgeCandidates returns the root-relative target candidates of an edge.
func edgeCandidates(f *model.File, edge *model.ImportEdge) []string {
	candidates := make([]string, 0, len(edge.ResolvedPaths)+1)
	candidates = append(candidates, edge.ResolvedPaths...)
	if edge.FileDependency != "" {
		candidates = append(candidates, model.NormalizePath(path.Join(f.Dir(), edge.FileDependency)))
	}
	return candidates
}

// Root returns the annotated tree.
func (g *Graph) Root() *model.Directory {
	return g.root
}

// Files returns every file in tree order.
func (g *Graph) Files() []*model.File {
	out := make([]*model.File, len(g.files))
	copy(out, g.files)
	return out
}

// Lookup resolves a path through the file index.
func (g *Graph) Lookup(p string) (*model.File, bool) {
	return g.index.Lookup(p)
}

// Targets returns the distinct resolved target paths of a file's edges,
// sorted.
func (g *Graph) Targets(filePath string) []string {
	set := make(map[string]bool)
	for _, re := range g.out[model.NormalizePath(filePath)] {
		for _, t := range re.targets {
			set[t.Path] = true
		}
	}
	return sortedKeys(set)
}

// Stats returns the annotation statistics.
func (g *Graph) Stats() Stats {
	return g.stats
}

// Candidates returns the files nothing in the tree imports, sorted by path.
func (g *Graph) Candidates() []*model.File {
	var out []*model.File
	for _, f := range g.files {
		if f.Meta.ImportCount == 0 {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// IsContentFile reports whether p matches the content file pattern.
func (g *Graph) IsContentFile(p string) bool {
	return g.contentPattern.MatchString(p)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
