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
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// File types in a closure.
const (
	FileTypeComponent = "component"
	FileTypeLib       = "lib"
	FileTypeFile      = "file"
)

// ClosureFile is one file of a closure with its display classification.
type ClosureFile struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Closure is everything a candidate pulls in transitively.
//
// Every list is deduplicated and sorted. FileDependencies always contains
// the candidate itself.
type Closure struct {
	Candidate            string        `json:"candidate"`
	Dependencies         []string      `json:"dependencies"`
	DevDependencies      []string      `json:"devDependencies"`
	RegistryDependencies []string      `json:"registryDependencies"`
	FileDependencies     []string      `json:"fileDependencies"`
	Files                []ClosureFile `json:"files"`

	// ContentEdges are the content associations the walk followed.
	ContentEdges []ContentEdge `json:"contentEdges,omitempty"`

	// Approximate is true when any followed content edge was approximate.
	Approximate bool `json:"approximate"`
}

// Closure computes the transitive closure of a candidate file.
//
// Description:
//
//	Depth-first walk with an explicit stack and a visited set owned by
//	this call, so cycles terminate and shared files appear once. Resolved
//	file edges and content edges are followed. Edges classified as
//	registry dependencies contribute their registry name but are not
//	followed, since the registry supplies those files.
//
// Inputs:
//   - ctx: Used for tracing only; the walk is synchronous.
//   - candidate: Root-relative path of the start file, resolved through
//     the index.
//
// Outputs:
//   - *Closure: The closure. Identical for repeated calls on an unchanged
//     graph.
//   - error: ErrFileNotFound if the candidate is not indexed.
func (g *Graph) Closure(ctx context.Context, candidate string) (*Closure, error) {
	start, ok := g.index.Lookup(candidate)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, candidate)
	}

	began := time.Now()
	ctx, span := startClosureSpan(ctx, start.Path)
	defer span.End()

	deps := make(map[string]bool)
	devDeps := make(map[string]bool)
	registryDeps := make(map[string]bool)
	visited := make(map[string]bool)
	var content []ContentEdge

	stack := []*model.File{start}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[f.Path] {
			continue
		}
		visited[f.Path] = true

		for _, re := range g.out[f.Path] {
			if d := re.edge.Dependency; d != nil {
				deps[d.String()] = true
			}
			if d := re.edge.DevDependency; d != nil {
				devDeps[d.String()] = true
			}
			if r := re.edge.RegistryDependency; r != nil {
				registryDeps[registryDisplay(*r)] = true
				continue
			}
			for _, t := range re.targets {
				if !visited[t.Path] {
					stack = append(stack, t)
				}
			}
		}

		for _, ce := range g.content[f.Path] {
			content = append(content, ce)
			if visited[ce.Target] {
				continue
			}
			if t, ok := g.index.Lookup(ce.Target); ok {
				stack = append(stack, t)
			}
		}
	}

	c := &Closure{
		Candidate:            start.Path,
		Dependencies:         sortedKeys(deps),
		DevDependencies:      sortedKeys(devDeps),
		RegistryDependencies: sortedKeys(registryDeps),
		FileDependencies:     sortedKeys(visited),
	}
	c.Files = make([]ClosureFile, 0, len(c.FileDependencies))
	for _, p := range c.FileDependencies {
		c.Files = append(c.Files, ClosureFile{
			Path:   p,
			Type:   g.FileType(p),
			Target: "~/" + p,
		})
	}

	sort.Slice(content, func(i, j int) bool {
		if content[i].Owner != content[j].Owner {
			return content[i].Owner < content[j].Owner
		}
		return content[i].Target < content[j].Target
	})
	c.ContentEdges = content
	for _, ce := range content {
		if ce.Approximate {
			c.Approximate = true
			break
		}
	}

	setClosureSpanResult(span, c)
	recordClosureMetrics(ctx, time.Since(began), c)
	return c, nil
}

// FileType classifies a path as component, lib or file. Content files are
// always file.
func (g *Graph) FileType(p string) string {
	if g.IsContentFile(p) {
		return FileTypeFile
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".tsx", ".jsx":
		return FileTypeComponent
	case ".ts", ".js":
		return FileTypeLib
	default:
		return FileTypeFile
	}
}

// registryDisplay formats a registry reference as "tag:name".
func registryDisplay(r model.PackageReference) string {
	if r.Type == "" {
		return r.Name
	}
	return r.Type + ":" + r.Name
}
