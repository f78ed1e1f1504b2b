// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"path"
	"strings"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// Index maps normalized path variants to files.
//
// Description:
//
//	Each file is registered under up to three keys: its exact path, its
//	path without extension, and, for index files, its directory. Exact
//	keys for all files are registered before any derived key, and a
//	derived key never replaces an existing one, so "foo.ts" wins the key
//	"foo" over "foo/index.ts".
//
// Thread Safety:
//
//	Index is immutable after NewIndex and safe for concurrent reads.
type Index struct {
	keys  map[string]*model.File
	exts  map[string]bool
	files int
}

// sourceAliasExts are the specifier extensions the TypeScript resolver
// maps back to a source file: "./a.js" may name "a.ts".
var sourceAliasExts = map[string]bool{
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

// NewIndex builds an index over files. Files are visited in the given
// order, which decides ties between derived keys.
func NewIndex(files []*model.File) *Index {
	idx := &Index{
		keys:  make(map[string]*model.File, len(files)*3),
		exts:  make(map[string]bool),
		files: len(files),
	}

	for _, f := range files {
		idx.keys[f.Path] = f
		if ext := strings.ToLower(path.Ext(f.Path)); ext != "" {
			idx.exts[ext] = true
		}
	}
	for _, f := range files {
		idx.add(stripExt(f.Path), f)
	}
	for _, f := range files {
		if key, ok := stripIndex(stripExt(f.Path)); ok {
			idx.add(key, f)
		}
	}
	return idx
}

func (idx *Index) add(key string, f *model.File) {
	if key == "" {
		return
	}
	if _, exists := idx.keys[key]; !exists {
		idx.keys[key] = f
	}
}

// Lookup resolves a root-relative candidate path to a file.
//
// Description:
//
//	The candidate is normalized and tried as given. If that misses and the
//	candidate's extension is a JavaScript extension or the extension of
//	some indexed file, it is retried without it, so "./a.js" resolves to
//	"a.ts" when no "a.js" exists. Other extensions are never stripped:
//	"./card.css" does not resolve to "card.tsx".
func (idx *Index) Lookup(candidate string) (*model.File, bool) {
	key := model.NormalizePath(candidate)
	if f, ok := idx.keys[key]; ok {
		return f, true
	}
	ext := strings.ToLower(path.Ext(key))
	if ext == "" || (!sourceAliasExts[ext] && !idx.exts[ext]) {
		return nil, false
	}
	if f, ok := idx.keys[stripExt(key)]; ok {
		return f, true
	}
	return nil, false
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	return idx.files
}

// Keys returns the number of registered keys.
func (idx *Index) Keys() int {
	return len(idx.keys)
}

// stripExt removes the extension of the last path element.
func stripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// stripIndex turns "dir/index" into "dir" and a root "index" into the root
// path. ok is false for anything else.
func stripIndex(p string) (string, bool) {
	if p == "index" {
		return model.RootPath, true
	}
	if strings.HasSuffix(p, "/index") {
		return strings.TrimSuffix(p, "/index"), true
	}
	return "", false
}
