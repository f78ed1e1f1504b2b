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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// CompilerConfigNames are checked in order in every directory.
var CompilerConfigNames = []string{"tsconfig.json", "jsconfig.json"}

// maxExtendsDepth bounds "extends" chains.
const maxExtendsDepth = 16

type compilerConfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL *string         `json:"baseUrl"`
		Paths   json.RawMessage `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadPathMappings finds the nearest compiler config at or above root and
// returns its path aliases in file order.
//
// Description:
//
//	Targets are made absolute against baseUrl, which is itself relative
//	to the file that declares it; without baseUrl the declaring file's
//	directory is used. A relative "extends" is followed until a file
//	declares "paths". The first baseUrl met along the chain applies, so a
//	project's own baseUrl overrides the one in the config it extends.
//	Comments and trailing commas are accepted.
//
// Outputs:
//   - []model.PathMapping: Empty when no config or no paths exist.
//   - string: The compiler config file found, or "".
//   - error: *ParseError for malformed files, ErrExtendsCycle.
func LoadPathMappings(root string) ([]model.PathMapping, string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, "", err
	}

	found := ""
	for dir := abs; ; {
		for _, name := range CompilerConfigNames {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				found = p
				break
			}
		}
		parent := filepath.Dir(dir)
		if found != "" || parent == dir {
			break
		}
		dir = parent
	}
	if found == "" {
		return nil, "", nil
	}

	mappings, err := resolveCompilerConfig(found, map[string]bool{}, 0, "")
	if err != nil {
		return nil, found, err
	}
	return mappings, found, nil
}

// resolveCompilerConfig reads one file and follows extends while no file
// in the chain declares paths. baseURL is the absolute baseUrl declared by
// the nearest file already visited, or "".
func resolveCompilerConfig(p string, seen map[string]bool, depth int, baseURL string) ([]model.PathMapping, error) {
	if seen[p] || depth > maxExtendsDepth {
		return nil, fmt.Errorf("%w: %s", ErrExtendsCycle, p)
	}
	seen[p] = true

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	data, err = hujson.Standardize(data)
	if err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}

	var cfg compilerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}

	opts := cfg.CompilerOptions
	if baseURL == "" && opts.BaseURL != nil {
		baseURL = filepath.Join(filepath.Dir(p), *opts.BaseURL)
	}

	hasPaths := len(opts.Paths) > 0 && string(opts.Paths) != "null"
	if !hasPaths {
		if isRelativeExtends(cfg.Extends) {
			parent := filepath.Join(filepath.Dir(p), cfg.Extends)
			if !strings.HasSuffix(parent, ".json") {
				parent += ".json"
			}
			return resolveCompilerConfig(parent, seen, depth+1, baseURL)
		}
		return nil, nil
	}

	base := baseURL
	if base == "" {
		base = filepath.Dir(p)
	}

	entries, err := orderedPaths(opts.Paths)
	if err != nil {
		return nil, &ParseError{Path: p, Err: err}
	}

	mappings := make([]model.PathMapping, 0, len(entries))
	for _, e := range entries {
		targets := make([]string, 0, len(e.targets))
		for _, t := range e.targets {
			targets = append(targets, filepath.Join(base, filepath.FromSlash(t)))
		}
		mappings = append(mappings, model.PathMapping{Alias: e.alias, Targets: targets, SourceFile: p})
	}
	return mappings, nil
}

func isRelativeExtends(s string) bool {
	return strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

type pathsEntry struct {
	alias   string
	targets []string
}

// orderedPaths decodes the "paths" object keeping key order, which
// decides alias precedence.
func orderedPaths(raw json.RawMessage) ([]pathsEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("compilerOptions.paths must be an object")
	}

	var entries []pathsEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in compilerOptions.paths", tok)
		}
		var targets []string
		if err := dec.Decode(&targets); err != nil {
			return nil, fmt.Errorf("compilerOptions.paths[%q]: %w", key, err)
		}
		entries = append(entries, pathsEntry{alias: key, targets: targets})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
