// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package depgraph is the import resolution and dependency graph engine.
//
// # Description
//
// An Analyzer scans a source tree, classifies each file's imports against
// package manifests, path aliases and registry prefixes, counts incoming
// edges per file, and links content files to their owners. The Result
// answers two questions: which files nothing imports (component
// candidates), and what a candidate pulls in transitively (its closure).
//
// # Data Flow
//
//	scan → classify (per file, parallel) → index → resolve & count →
//	match content → candidates / closure (on demand)
//
// # Example
//
//	a, err := depgraph.NewAnalyzer(depgraph.Options{Root: "."})
//	if err != nil {
//	    return err
//	}
//	res, err := a.Analyze(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, f := range res.Candidates() {
//	    c, _ := res.Closure(ctx, f.Path)
//	    fmt.Println(f.Path, c.Dependencies)
//	}
package depgraph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph/alias"
	"github.com/AleutianAI/uiregistry/services/depgraph/ast"
	"github.com/AleutianAI/uiregistry/services/depgraph/classify"
	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
	"github.com/AleutianAI/uiregistry/services/depgraph/registry"
	"github.com/AleutianAI/uiregistry/services/depgraph/scan"
)

// Options configures an Analyzer.
type Options struct {
	// Root is the directory to analyze.
	Root string

	// Extensions is the file extension allow-set. Empty means
	// scan.DefaultExtensions.
	Extensions []string

	// SkipDirs is the directory skip-set. Nil means scan.DefaultSkipDirs.
	SkipDirs []string

	// ContentPattern identifies content files. Empty means
	// graph.DefaultContentPattern.
	ContentPattern string

	// Manifests are the parsed package manifests.
	Manifests []model.Manifest

	// PathMappings are the path aliases in discovery order.
	PathMappings []model.PathMapping

	// Registries are the known registry prefixes.
	Registries []model.KnownRegistryEntry

	// Parser overrides the default tree-sitter parser.
	Parser ast.Parser

	// Logger is passed to every component. Nil disables logging.
	Logger *logging.Logger
}

// Analyzer runs full analyses of one root. Every Analyze call rescans
// from scratch; nothing is cached between runs.
//
// Thread Safety:
//
//	Analyze may be called concurrently; each call builds its own tree.
type Analyzer struct {
	root           string
	scanner        *scan.Scanner
	contentPattern *regexp.Regexp
	logger         *logging.Logger
}

// NewAnalyzer validates options and wires the pipeline.
//
// Outputs:
//   - *Analyzer: Ready to run.
//   - error: ErrEmptyRoot, ErrPathNotExist, ErrPathNotDirectory,
//     alias.ErrInvalidPattern or graph.ErrInvalidContentPattern.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	if opts.Root == "" {
		return nil, ErrEmptyRoot
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotExist, root)
		}
		return nil, fmt.Errorf("checking root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotDirectory, root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	pattern, err := graph.CompileContentPattern(opts.ContentPattern)
	if err != nil {
		return nil, err
	}

	resolver, err := alias.NewResolver(opts.PathMappings)
	if err != nil {
		return nil, err
	}

	parser := opts.Parser
	if parser == nil {
		parser = ast.NewTypeScriptParser(ast.WithLogger(logger))
	}

	classifier := classify.New(classify.Context{
		Root:       root,
		Manifests:  opts.Manifests,
		Aliases:    resolver,
		Registries: opts.Registries,
	}, logger)

	scanner, err := scan.NewScanner(scan.Options{
		Root:       root,
		Extensions: opts.Extensions,
		SkipDirs:   opts.SkipDirs,
		Parser:     parser,
		Classifier: classifier,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		root:           root,
		scanner:        scanner,
		contentPattern: pattern,
		logger:         logger,
	}, nil
}

// Root returns the absolute root being analyzed.
func (a *Analyzer) Root() string {
	return a.root
}

// Analyze scans the root, annotates import counts and matches content
// files. Any scan failure aborts the run and no partial result is
// returned.
func (a *Analyzer) Analyze(ctx context.Context) (*Result, error) {
	scanned, err := a.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", a.root, err)
	}

	g, err := graph.Annotate(ctx, scanned.Tree,
		graph.WithContentPattern(a.contentPattern),
		graph.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("annotating graph: %w", err)
	}
	content := g.MatchContent()

	return &Result{
		Root:      a.root,
		Tree:      scanned.Tree,
		Graph:     g,
		ScanStats: scanned.Stats,
		Content:   content,
	}, nil
}

// Result is one completed analysis.
type Result struct {
	// Root is the absolute analyzed directory.
	Root string

	// Tree is the annotated directory/file tree.
	Tree *model.Directory

	// Graph answers candidate and closure queries.
	Graph *graph.Graph

	// ScanStats summarizes the scan.
	ScanStats scan.Stats

	// Content lists every content association.
	Content []graph.ContentEdge
}

// Candidates returns the component candidates sorted by path.
func (r *Result) Candidates() []*model.File {
	return r.Graph.Candidates()
}

// Closure computes the closure of one candidate.
func (r *Result) Closure(ctx context.Context, candidate string) (*graph.Closure, error) {
	return r.Graph.Closure(ctx, candidate)
}

// Closures computes closures for the given paths in order. With no paths
// it computes one per candidate.
func (r *Result) Closures(ctx context.Context, paths ...string) ([]*graph.Closure, error) {
	if len(paths) == 0 {
		for _, f := range r.Candidates() {
			paths = append(paths, f.Path)
		}
	}

	out := make([]*graph.Closure, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := r.Graph.Closure(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Items shapes the closures of the given paths, or of every candidate,
// into registry items.
func (r *Result) Items(ctx context.Context, paths ...string) ([]registry.Item, error) {
	closures, err := r.Closures(ctx, paths...)
	if err != nil {
		return nil, err
	}
	return registry.Items(r.Graph, closures), nil
}
