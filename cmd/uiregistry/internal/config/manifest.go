// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// ManifestFileName is the package manifest file name.
const ManifestFileName = "package.json"

type packageJSON struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// LoadManifests returns the manifests visible to a scan of root.
//
// Description:
//
//	The nearest package.json at or above root applies to the whole tree
//	and is reported with Dir ".". Manifests nested below root, outside
//	skipDirs, apply to their own subtree. The result is ordered by Dir.
//
// Outputs:
//   - []model.Manifest: Possibly empty.
//   - error: *ParseError for malformed JSON, or a filesystem error.
func LoadManifests(root string, skipDirs []string) ([]model.Manifest, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var manifests []model.Manifest

	nearest, err := findUp(abs, ManifestFileName)
	if err != nil {
		return nil, err
	}
	if nearest != "" {
		m, err := readManifest(nearest)
		if err != nil {
			return nil, err
		}
		m.Dir = model.RootPath
		manifests = append(manifests, m)
	}

	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[strings.ToLower(d)] = true
	}

	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && skip[strings.ToLower(d.Name())] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestFileName || filepath.Dir(p) == abs {
			return nil
		}
		m, err := readManifest(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, filepath.Dir(p))
		if err != nil {
			return err
		}
		m.Dir = model.NormalizePath(filepath.ToSlash(rel))
		manifests = append(manifests, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifests, nil
}

func readManifest(p string) (model.Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("reading %s: %w", p, err)
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return model.Manifest{}, &ParseError{Path: p, Err: err}
	}
	return model.Manifest{
		Name:            pkg.Name,
		Dependencies:    pkg.Dependencies,
		DevDependencies: pkg.DevDependencies,
	}, nil
}

// findUp returns the first dir/name found walking up from dir, or "".
func findUp(dir, name string) (string, error) {
	for {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
