// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the tree and edge types shared by the dependency
// graph engine.
//
// # Ownership Model
//
// Nodes are created once per scan by the scanner and are never deleted.
// The only field mutated after construction is File.Meta.ImportCount, which
// is written by the annotation pass in the graph package.
//
// # Paths
//
// Every path stored in this package is relative to the scan root, uses
// forward slashes and never starts with "./". The root directory itself has
// the path ".".
package model

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// RootPath is the path of the scan root directory node.
const RootPath = "."

// Reference types for PackageReference.Type. Registry references carry the
// registry tag of the matching KnownRegistryEntry instead.
const (
	RefTypeDependency    = "dependency"
	RefTypeDevDependency = "devDependency"
)

// Node is either a *Directory or a *File.
type Node interface {
	NodeName() string
	NodePath() string
	node()
}

// Directory is a scanned directory. Children are sorted by name.
type Directory struct {
	Name     string
	Path     string
	Children []Node
}

// NodeName returns the directory's base name.
func (d *Directory) NodeName() string { return d.Name }

// NodePath returns the directory's root-relative path.
func (d *Directory) NodePath() string { return d.Path }

func (d *Directory) node() {}

// MarshalJSON encodes the directory with a "type" discriminator.
func (d *Directory) MarshalJSON() ([]byte, error) {
	children := d.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Type     string `json:"type"`
		Name     string `json:"name"`
		Path     string `json:"path"`
		Children []Node `json:"children"`
	}{"directory", d.Name, d.Path, children})
}

// FileMeta holds stat metadata and the incoming edge count of a file.
type FileMeta struct {
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	ImportCount int       `json:"importCount"`
}

// File is a scanned source file with its classified imports in source order.
type File struct {
	Name    string
	Path    string
	Imports []ImportEdge
	Meta    FileMeta
}

// NodeName returns the file's base name.
func (f *File) NodeName() string { return f.Name }

// NodePath returns the file's root-relative path.
func (f *File) NodePath() string { return f.Path }

func (f *File) node() {}

// Dir returns the root-relative directory containing the file.
func (f *File) Dir() string {
	return path.Dir(f.Path)
}

// MarshalJSON encodes the file with a "type" discriminator.
func (f *File) MarshalJSON() ([]byte, error) {
	imports := f.Imports
	if imports == nil {
		imports = []ImportEdge{}
	}
	return json.Marshal(struct {
		Type    string       `json:"type"`
		Name    string       `json:"name"`
		Path    string       `json:"path"`
		Imports []ImportEdge `json:"imports"`
		Meta    FileMeta     `json:"meta"`
	}{"file", f.Name, f.Path, imports, f.Meta})
}

// PackageReference names an external package or registry item.
type PackageReference struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type"`
}

// String formats the reference as "name" or "name@version".
func (r PackageReference) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + "@" + r.Version
}

// ImportEdge is one classified import statement.
//
// FileDependency is set iff the specifier is relative. Dependency and
// DevDependency are mutually exclusive. Alias and registry classification
// are independent of FileDependency.
type ImportEdge struct {
	Line               int               `json:"line"`
	Statement          string            `json:"statement"`
	ModuleSpecifier    string            `json:"moduleSpecifier,omitempty"`
	FileDependency     string            `json:"fileDependency,omitempty"`
	Dependency         *PackageReference `json:"dependency,omitempty"`
	DevDependency      *PackageReference `json:"devDependency,omitempty"`
	PathAlias          string            `json:"pathAlias,omitempty"`
	ResolvedPaths      []string          `json:"resolvedPaths,omitempty"`
	RegistryDependency *PackageReference `json:"registryDependency,omitempty"`
}

// IsRelative reports whether the edge points at a relative file path.
func (e ImportEdge) IsRelative() bool {
	return e.FileDependency != ""
}

// PathMapping is one configured path alias. Targets are absolute paths and
// may contain the same single "*" wildcard as Alias.
type PathMapping struct {
	Alias      string   `json:"alias"`
	Targets    []string `json:"targets"`
	SourceFile string   `json:"sourceFile,omitempty"`
}

// KnownRegistryEntry maps a root-relative path prefix to a registry tag.
type KnownRegistryEntry struct {
	Prefix           string `json:"prefix"`
	NormalizedPrefix string `json:"normalizedPrefix"`
	Type             string `json:"type"`
}

// NewKnownRegistryEntry builds an entry and computes its normalized prefix.
func NewKnownRegistryEntry(prefix, registryType string) KnownRegistryEntry {
	return KnownRegistryEntry{
		Prefix:           prefix,
		NormalizedPrefix: NormalizePrefix(prefix),
		Type:             registryType,
	}
}

// Manifest is the parsed content of one package manifest.
//
// Dir is the root-relative directory holding the manifest. A manifest
// discovered above the scan root uses RootPath.
type Manifest struct {
	Dir             string            `json:"dir"`
	Name            string            `json:"name,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// NormalizePath converts a path to the stored form: forward slashes, cleaned,
// no leading "./". The empty path becomes RootPath.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return RootPath
	}
	p = path.Clean(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// NormalizePrefix returns p without a leading "./" and with a trailing "/".
func NormalizePrefix(p string) string {
	p = NormalizePath(p)
	if p == RootPath {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// Walk calls fn for every file under n in tree order.
func Walk(n Node, fn func(*File)) {
	switch v := n.(type) {
	case *File:
		fn(v)
	case *Directory:
		for _, child := range v.Children {
			Walk(child, fn)
		}
	}
}

// Files returns every file under n in tree order.
func Files(n Node) []*File {
	var files []*File
	Walk(n, func(f *File) {
		files = append(files, f)
	})
	return files
}
