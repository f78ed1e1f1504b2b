// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts raw import statements from JavaScript and TypeScript
// source files.
//
// The rest of the engine only sees RawImport values; nothing outside this
// package touches tree-sitter nodes.
package ast

import (
	"context"
)

// Size limits applied by parsers.
const (
	// DefaultMaxFileSize is the largest file a parser accepts (10MB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize is the size above which a parse logs a warning (1MB).
	WarnFileSize = 1024 * 1024
)

// RawImport is one top-level import statement as it appears in source.
type RawImport struct {
	// Line is the 1-based line of the statement's first character.
	Line int

	// Text is the raw statement text, including any trailing semicolon.
	Text string

	// Specifier is the literal module specifier without quotes.
	Specifier string
}

// Parser extracts the ordered import statements of one file.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use; the scanner calls
//	Parse from one goroutine per file.
type Parser interface {
	// Parse returns the file's top-level imports in source order.
	// filePath is root-relative and selects the grammar.
	Parse(ctx context.Context, content []byte, filePath string) ([]RawImport, error)

	// Extensions lists the lower-case extensions the parser handles.
	Extensions() []string
}
