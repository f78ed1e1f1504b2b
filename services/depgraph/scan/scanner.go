// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan walks a source tree and assembles the directory/file node
// tree with classified imports.
//
// # Concurrency
//
// Every directory fans its entries out to goroutines through an errgroup
// and joins them before attaching the children. Sibling tasks write only to
// their own slot of the parent's child slice, so no locking is needed. The
// first error cancels the group and the whole scan fails.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph/ast"
	"github.com/AleutianAI/uiregistry/services/depgraph/classify"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// DefaultExtensions is the extension allow-set used when none is given.
var DefaultExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// DefaultSkipDirs is the directory skip-set used when none is given.
var DefaultSkipDirs = []string{"node_modules", ".git", "dist", "build", ".next"}

// Options configures a Scanner.
type Options struct {
	// Root is the directory to scan. Made absolute by NewScanner.
	Root string

	// Extensions are the file extensions to keep, compared lower-cased.
	// Empty means DefaultExtensions.
	Extensions []string

	// SkipDirs are directory names pruned from the walk, compared
	// case-insensitively. Nil means DefaultSkipDirs.
	SkipDirs []string

	// Parser extracts imports. Files whose extension the parser does not
	// handle are kept without imports.
	Parser ast.Parser

	// Classifier turns raw imports into edges.
	Classifier *classify.Classifier

	// Logger receives progress messages. Nil disables logging.
	Logger *logging.Logger
}

// Stats summarizes a completed scan.
type Stats struct {
	Directories int           `json:"directories"`
	Files       int           `json:"files"`
	Imports     int           `json:"imports"`
	Duration    time.Duration `json:"duration"`
}

// Result is the output of a successful scan.
type Result struct {
	Tree  *model.Directory
	Stats Stats
}

// Scanner builds the node tree for one root.
//
// Thread Safety:
//
//	A Scanner holds no per-scan state and may run several scans
//	concurrently.
type Scanner struct {
	root       string
	extensions map[string]bool
	parsable   map[string]bool
	skipDirs   map[string]bool
	parser     ast.Parser
	classifier *classify.Classifier
	logger     *logging.Logger
}

// NewScanner validates options and creates a Scanner.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Root == "" {
		return nil, ErrNoRoot
	}
	if opts.Parser == nil {
		return nil, ErrNoParser
	}
	if opts.Classifier == nil {
		return nil, ErrNoClassifier
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", opts.Root, err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	skips := opts.SkipDirs
	if skips == nil {
		skips = DefaultSkipDirs
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Scanner{
		root:       root,
		extensions: lowerSet(exts),
		parsable:   lowerSet(opts.Parser.Extensions()),
		skipDirs:   lowerSet(skips),
		parser:     opts.Parser,
		classifier: opts.Classifier,
		logger:     logger,
	}
	return s, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root and returns the assembled tree.
//
// Outputs:
//   - *Result: The tree with classified imports. ImportCount is zero on
//     every file; counting is the graph package's job.
//   - error: A *FileError for the first filesystem failure, or a
//     context error. No partial tree is returned.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, span := startScanSpan(ctx, s.root)
	defer span.End()

	info, err := os.Stat(s.root)
	if err != nil {
		err = &FileError{Path: model.RootPath, Op: OpStat, Err: err}
		setScanSpanResult(span, Stats{}, err)
		recordScanMetrics(ctx, time.Since(start), Stats{}, false)
		return nil, err
	}
	if !info.IsDir() {
		err = &FileError{Path: model.RootPath, Op: OpStat, Err: fmt.Errorf("%s is not a directory", s.root)}
		setScanSpanResult(span, Stats{}, err)
		recordScanMetrics(ctx, time.Since(start), Stats{}, false)
		return nil, err
	}

	s.logger.Debug("scan started", "root", s.root)

	tree, err := s.scanDir(ctx, s.root, model.RootPath, filepath.Base(s.root))
	if err != nil {
		setScanSpanResult(span, Stats{}, err)
		recordScanMetrics(ctx, time.Since(start), Stats{}, false)
		return nil, err
	}

	stats := collectStats(tree)
	stats.Duration = time.Since(start)

	setScanSpanResult(span, stats, nil)
	recordScanMetrics(ctx, stats.Duration, stats, true)
	s.logger.Info("scan complete",
		"root", s.root,
		"directories", stats.Directories,
		"files", stats.Files,
		"imports", stats.Imports,
		"duration", stats.Duration)

	return &Result{Tree: tree, Stats: stats}, nil
}

// scanDir reads one directory and fans its entries out.
func (s *Scanner) scanDir(ctx context.Context, absDir, relDir, name string) (*model.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, &FileError{Path: relDir, Op: OpReadDir, Err: err}
	}

	slots := make([]model.Node, len(entries))
	g, gctx := errgroup.WithContext(ctx)

	for i, entry := range entries {
		entryName := entry.Name()
		absPath := filepath.Join(absDir, entryName)
		relPath := joinRel(relDir, entryName)

		if entry.IsDir() {
			if s.skipDirs[strings.ToLower(entryName)] {
				continue
			}
			g.Go(func() error {
				dir, err := s.scanDir(gctx, absPath, relPath, entryName)
				if err != nil {
					return err
				}
				slots[i] = dir
				return nil
			})
			continue
		}

		ext := strings.ToLower(path.Ext(entryName))
		if !s.extensions[ext] {
			continue
		}
		g.Go(func() error {
			file, err := s.scanFile(gctx, absPath, relPath, entryName, ext)
			if err != nil {
				return err
			}
			slots[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	children := make([]model.Node, 0, len(slots))
	for _, n := range slots {
		if n != nil {
			children = append(children, n)
		}
	}
	sort.Slice(children, func(a, b int) bool {
		return children[a].NodeName() < children[b].NodeName()
	})

	return &model.Directory{Name: name, Path: relDir, Children: children}, nil
}

// scanFile reads, parses and classifies one file.
func (s *Scanner) scanFile(ctx context.Context, absPath, relPath, name, ext string) (*model.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, &FileError{Path: relPath, Op: OpStat, Err: err}
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &FileError{Path: relPath, Op: OpRead, Err: err}
	}

	file := &model.File{
		Name:    name,
		Path:    relPath,
		Imports: []model.ImportEdge{},
		Meta: model.FileMeta{
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		},
	}

	if !s.parsable[ext] {
		s.logger.Debug("no grammar for file, keeping without imports", "file", relPath)
		return file, nil
	}

	raw, err := s.parser.Parse(ctx, content, relPath)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		s.logger.Warn("file could not be parsed, keeping without imports",
			"file", relPath,
			"error", err)
		return file, nil
	}
	file.Imports = s.classifier.ClassifyAll(relPath, raw)

	s.logger.Debug("file scanned", "file", relPath, "imports", len(file.Imports))
	return file, nil
}

func collectStats(root *model.Directory) Stats {
	var stats Stats
	var walk func(n model.Node)
	walk = func(n model.Node) {
		switch v := n.(type) {
		case *model.Directory:
			stats.Directories++
			for _, child := range v.Children {
				walk(child)
			}
		case *model.File:
			stats.Files++
			stats.Imports += len(v.Imports)
		}
	}
	walk(root)
	return stats
}

func joinRel(dir, name string) string {
	if dir == model.RootPath {
		return name
	}
	return dir + "/" + name
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
