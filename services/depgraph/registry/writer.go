// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/pkg/validation"
)

// IndexFileName is the file listing every written item.
const IndexFileName = "index.json"

var (
	// ErrNoOutputDir is returned when the writer has no directory.
	ErrNoOutputDir = errors.New("output directory is required")

	// ErrInvalidItemName is returned for names that are empty or would
	// escape the output directory.
	ErrInvalidItemName = errors.New("invalid item name")

	// ErrDuplicateItemName is returned when two items would be written to
	// the same file.
	ErrDuplicateItemName = errors.New("duplicate item name")
)

// IndexEntry summarizes one item in the index file.
type IndexEntry struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Files int    `json:"files"`
}

// JSONWriter writes one "<name>.json" per item plus an index file.
type JSONWriter struct {
	dir    string
	logger *logging.Logger
}

// NewJSONWriter creates a writer for dir. A nil logger disables logging.
func NewJSONWriter(dir string, logger *logging.Logger) (*JSONWriter, error) {
	if dir == "" {
		return nil, ErrNoOutputDir
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &JSONWriter{dir: dir, logger: logger}, nil
}

// Write writes every item and the index, returning the written paths.
//
// Every name is checked before anything is written. The output directory
// is created if needed. Existing files with the same names are
// overwritten; other files are left alone.
func (w *JSONWriter) Write(ctx context.Context, items []Item) ([]string, error) {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if err := validateName(item.Name); err != nil {
			return nil, err
		}
		if seen[item.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItemName, item.Name)
		}
		seen[item.Name] = true
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", w.dir, err)
	}

	written := make([]string, 0, len(items)+1)
	index := make([]IndexEntry, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		p := filepath.Join(w.dir, item.Name+".json")
		if err := writeJSON(p, item); err != nil {
			return written, err
		}
		written = append(written, p)
		index = append(index, IndexEntry{Name: item.Name, Type: item.Type, Files: len(item.Files)})

		w.logger.Debug("registry item written", "name", item.Name, "path", p)
	}

	p := filepath.Join(w.dir, IndexFileName)
	if err := writeJSON(p, index); err != nil {
		return written, err
	}
	written = append(written, p)

	w.logger.Info("registry written", "dir", w.dir, "items", len(items))
	return written, nil
}

func validateName(name string) error {
	if err := validation.ValidateFileName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItemName, err)
	}
	if name+".json" == IndexFileName {
		return fmt.Errorf("%w: %q collides with the index file", ErrInvalidItemName, name)
	}
	return nil
}

func writeJSON(p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", p, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}
