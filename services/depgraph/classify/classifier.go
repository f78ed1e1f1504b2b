// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify turns raw import statements into typed import edges.
package classify

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph/alias"
	"github.com/AleutianAI/uiregistry/services/depgraph/ast"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// Context is the package and alias data consulted for every import.
type Context struct {
	// Root is the absolute scan root. Alias targets are made relative to it.
	Root string

	// Manifests are the package manifests visible to the scan. Each file
	// uses the manifest whose Dir is its nearest ancestor.
	Manifests []model.Manifest

	// Aliases resolves path alias patterns. May be nil.
	Aliases *alias.Resolver

	// Registries are the known registry prefixes, checked in order.
	Registries []model.KnownRegistryEntry
}

// Classifier classifies imports against a fixed Context.
//
// Thread Safety:
//
//	Classifier is read-only after construction and safe for concurrent use.
type Classifier struct {
	root       string
	manifests  []model.Manifest
	aliases    *alias.Resolver
	registries []model.KnownRegistryEntry
	logger     *logging.Logger
}

// New creates a Classifier. A nil logger disables logging.
func New(c Context, logger *logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.Nop()
	}

	manifests := make([]model.Manifest, len(c.Manifests))
	copy(manifests, c.Manifests)
	for i := range manifests {
		manifests[i].Dir = model.NormalizePath(manifests[i].Dir)
	}
	// Deepest directory first so the first hit is the nearest manifest.
	sort.SliceStable(manifests, func(i, j int) bool {
		return depth(manifests[i].Dir) > depth(manifests[j].Dir)
	})

	return &Classifier{
		root:       c.Root,
		manifests:  manifests,
		aliases:    c.Aliases,
		registries: c.Registries,
		logger:     logger,
	}
}

// ClassifyAll classifies every import of one file, preserving order.
func (c *Classifier) ClassifyAll(filePath string, imports []ast.RawImport) []model.ImportEdge {
	edges := make([]model.ImportEdge, 0, len(imports))
	for _, raw := range imports {
		edges = append(edges, c.Classify(filePath, raw))
	}
	return edges
}

// Classify builds the ImportEdge for one import statement of filePath.
//
// Description:
//
//	File and alias classification are independent: an edge may carry a
//	FileDependency as well as alias and registry data. Package matching
//	uses the specifier's leading package segment and prefers dependencies
//	over devDependencies.
func (c *Classifier) Classify(filePath string, raw ast.RawImport) model.ImportEdge {
	spec := raw.Specifier
	edge := model.ImportEdge{
		Line:            raw.Line,
		Statement:       raw.Text,
		ModuleSpecifier: spec,
	}

	if isRelative(spec) {
		edge.FileDependency = spec
	} else if pkg := packageSegment(spec); pkg != "" {
		c.classifyPackage(&edge, path.Dir(model.NormalizePath(filePath)), pkg)
	}

	if match, ok := c.aliases.Resolve(spec); ok {
		edge.PathAlias = match.Mapping.Alias
		edge.ResolvedPaths = make([]string, 0, len(match.Targets))
		for _, target := range match.Targets {
			edge.ResolvedPaths = append(edge.ResolvedPaths, c.relativize(target))
		}
		edge.RegistryDependency = c.registryFor(edge.ResolvedPaths)
		if edge.RegistryDependency != nil {
			c.logger.Debug("registry dependency",
				"file", filePath,
				"specifier", spec,
				"registry", edge.RegistryDependency.Type,
				"name", edge.RegistryDependency.Name)
		}
	}

	return edge
}

func (c *Classifier) classifyPackage(edge *model.ImportEdge, fileDir, pkg string) {
	manifest, ok := c.nearestManifest(fileDir)
	if !ok {
		return
	}
	if version, ok := manifest.Dependencies[pkg]; ok {
		edge.Dependency = &model.PackageReference{Name: pkg, Version: version, Type: model.RefTypeDependency}
		return
	}
	if version, ok := manifest.DevDependencies[pkg]; ok {
		edge.DevDependency = &model.PackageReference{Name: pkg, Version: version, Type: model.RefTypeDevDependency}
	}
}

func (c *Classifier) nearestManifest(fileDir string) (model.Manifest, bool) {
	for _, m := range c.manifests {
		if m.Dir == model.RootPath || m.Dir == fileDir || strings.HasPrefix(fileDir, m.Dir+"/") {
			return m, true
		}
	}
	return model.Manifest{}, false
}

// relativize turns an absolute alias target into a root-relative path.
// Targets that are already relative are only normalized.
func (c *Classifier) relativize(target string) string {
	if !filepath.IsAbs(target) || c.root == "" {
		return model.NormalizePath(target)
	}
	rel, err := filepath.Rel(c.root, target)
	if err != nil {
		return model.NormalizePath(filepath.ToSlash(target))
	}
	return model.NormalizePath(filepath.ToSlash(rel))
}

// registryFor returns the registry reference of the first resolved path
// that falls under a known registry prefix.
func (c *Classifier) registryFor(resolved []string) *model.PackageReference {
	for _, p := range resolved {
		for _, entry := range c.registries {
			if entry.NormalizedPrefix == "" || !strings.HasPrefix(p, entry.NormalizedPrefix) {
				continue
			}
			name := RegistryName(strings.TrimPrefix(p, entry.NormalizedPrefix))
			if name == "" {
				continue
			}
			return &model.PackageReference{Name: name, Type: entry.Type}
		}
	}
	return nil
}

// RegistryName derives the flat registry item name from the part of a path
// below a registry prefix: "ui/button.tsx" becomes "ui-button" and
// "card/index.ts" becomes "card".
func RegistryName(remainder string) string {
	name := strings.Trim(remainder, "/")
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "index" {
		return ""
	}
	name = strings.TrimSuffix(name, "/index")
	return strings.ReplaceAll(name, "/", "-")
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// packageSegment returns the package name a bare specifier refers to:
// "@scope/name" for scoped packages, otherwise the first path segment.
func packageSegment(spec string) string {
	if spec == "" || strings.HasPrefix(spec, "/") || spec == "." || spec == ".." {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func depth(dir string) int {
	if dir == model.RootPath {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
