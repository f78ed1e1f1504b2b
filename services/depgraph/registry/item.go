// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry shapes closures into registry items and writes them to
// disk.
package registry

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
)

// ItemTypePrefix prefixes the candidate's file type in Item.Type.
const ItemTypePrefix = "registry:"

// File is one file entry of an item.
type File struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Item is one distributable registry entry.
type Item struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Dependencies         []string `json:"dependencies"`
	DevDependencies      []string `json:"devDependencies"`
	RegistryDependencies []string `json:"registryDependencies"`
	Files                []File   `json:"files"`

	// Approximate marks items whose content files were linked by the
	// directory fallback.
	Approximate bool `json:"approximate,omitempty"`
}

// RootIndexName names the item of a root index file, since "index"
// belongs to the index file.
const RootIndexName = "root"

// ItemName derives an item name from a candidate path: the file name
// without extension, or the directory name for index files. A root index
// file is RootIndexName.
func ItemName(candidate string) string {
	base := strings.TrimSuffix(path.Base(candidate), path.Ext(candidate))
	if base == "index" {
		dir := path.Base(path.Dir(candidate))
		if dir == "." || dir == "/" {
			return RootIndexName
		}
		return dir
	}
	return base
}

// qualifiedName folds the whole extensionless path into one token, used
// when two candidates share an ItemName. "index" segments are kept, so
// "card.tsx" and "card/index.tsx" stay apart.
func qualifiedName(candidate string) string {
	p := strings.TrimSuffix(candidate, path.Ext(candidate))
	if p == "index" {
		return RootIndexName + "-index"
	}
	return strings.ReplaceAll(p, "/", "-")
}

// NewItem shapes one closure into an item called name.
func NewItem(name string, c *graph.Closure, candidateType string) Item {
	item := Item{
		Name:                 name,
		Type:                 ItemTypePrefix + candidateType,
		Dependencies:         nonNil(c.Dependencies),
		DevDependencies:      nonNil(c.DevDependencies),
		RegistryDependencies: nonNil(c.RegistryDependencies),
		Files:                make([]File, 0, len(c.Files)),
		Approximate:          c.Approximate,
	}
	for _, f := range c.Files {
		item.Files = append(item.Files, File{Path: f.Path, Type: f.Type, Target: f.Target})
	}
	return item
}

// Items shapes closures into items with unique names, sorted by name.
//
// Candidates whose short names collide fall back to their full
// hyphen-joined path, so "a/card.tsx" and "b/card.tsx" become "a-card"
// and "b-card". A name that is still taken, or that would collide with
// the index file, gets a numeric suffix ("a-card-2"), assigned in
// candidate path order.
func Items(g *graph.Graph, closures []*graph.Closure) []Item {
	ordered := make([]*graph.Closure, len(closures))
	copy(ordered, closures)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Candidate < ordered[j].Candidate
	})

	counts := make(map[string]int, len(ordered))
	for _, c := range ordered {
		counts[ItemName(c.Candidate)]++
	}

	taken := map[string]bool{strings.TrimSuffix(IndexFileName, ".json"): true}
	items := make([]Item, 0, len(ordered))
	for _, c := range ordered {
		name := ItemName(c.Candidate)
		if counts[name] > 1 {
			name = qualifiedName(c.Candidate)
		}
		name = uniqueName(name, taken)
		taken[name] = true
		items = append(items, NewItem(name, c, g.FileType(c.Candidate)))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// uniqueName returns name, or name with the smallest suffix "-N" (N >= 2)
// not in taken.
func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
