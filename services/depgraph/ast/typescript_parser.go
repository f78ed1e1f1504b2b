// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/AleutianAI/uiregistry/pkg/logging"
)

// TypeScriptParserOption configures a TypeScriptParser instance.
type TypeScriptParserOption func(*TypeScriptParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
// Non-positive values are ignored.
func WithMaxFileSize(bytes int64) TypeScriptParserOption {
	return func(p *TypeScriptParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger used for size warnings and syntax error notes.
func WithLogger(logger *logging.Logger) TypeScriptParserOption {
	return func(p *TypeScriptParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// TypeScriptParser extracts top-level import statements from TypeScript,
// TSX, JavaScript and JSX sources using tree-sitter.
//
// Description:
//
//	Two statement forms are recognised:
//	  import x, { y } from "spec";   import "spec";   import type { T } from "spec";
//	  import x = require("spec");
//	Dynamic import() calls, require() calls outside import-equals and
//	re-exports are not imports for this parser.
//
// Thread Safety:
//
//	TypeScriptParser is safe for concurrent use. Each Parse call creates its
//	own tree-sitter parser instance.
//
// Example:
//
//	parser := NewTypeScriptParser()
//	imports, err := parser.Parse(ctx, []byte(`import x from "./x";`), "a.ts")
type TypeScriptParser struct {
	maxFileSize int64
	logger      *logging.Logger
}

// NewTypeScriptParser creates a TypeScriptParser with a 10MB size limit and
// a no-op logger unless overridden.
func NewTypeScriptParser(opts ...TypeScriptParserOption) *TypeScriptParser {
	p := &TypeScriptParser{
		maxFileSize: DefaultMaxFileSize,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extensions returns the extensions this parser has a grammar for.
func (p *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

// Parse extracts the file's top-level imports in source order.
//
// Description:
//
//	The grammar is chosen from filePath's extension. tree-sitter is error
//	tolerant: a file with syntax errors still yields every import statement
//	that parsed cleanly.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw source bytes. Must be valid UTF-8.
//   - filePath: Root-relative path, used for grammar selection and logging.
//
// Outputs:
//   - []RawImport: Imports in source order. Empty, never nil, on success.
//   - error: ErrUnsupportedLanguage, ErrFileTooLarge, ErrInvalidContent,
//     ErrParseFailed, or a context error.
func (p *TypeScriptParser) Parse(ctx context.Context, content []byte, filePath string) ([]RawImport, error) {
	start := time.Now()
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	imports, err := p.parse(ctx, content, filePath)

	importCount := len(imports)
	setParseSpanResult(span, importCount, err)
	recordParseMetrics(ctx, languageFor(filePath), time.Since(start), importCount, err == nil)
	return imports, err
}

func (p *TypeScriptParser) parse(ctx context.Context, content []byte, filePath string) ([]RawImport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	lang := grammarFor(filePath)
	if lang == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path.Ext(filePath))
	}

	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > WarnFileSize {
		p.logger.Warn("parsing large file",
			"file", filePath,
			"size_bytes", len(content))
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrParseFailed)
	}
	if root.HasError() {
		p.logger.Debug("source contains syntax errors", "file", filePath)
	}

	imports := make([]RawImport, 0)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil || child.Type() != "import_statement" {
			continue
		}
		spec := p.importSource(child, content)
		if spec == "" {
			continue
		}
		imports = append(imports, RawImport{
			Line:      int(child.StartPoint().Row) + 1,
			Text:      child.Content(content),
			Specifier: spec,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}
	return imports, nil
}

// importSource returns the module specifier of an import_statement, or ""
// when the statement has no string source (import x = A.B).
func (p *TypeScriptParser) importSource(node *sitter.Node, content []byte) string {
	if src := node.ChildByFieldName("source"); src != nil {
		return extractStringContent(src, content)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_require_clause":
			if src := child.ChildByFieldName("source"); src != nil {
				return extractStringContent(src, content)
			}
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if gc := child.NamedChild(j); gc.Type() == "string" {
					return extractStringContent(gc, content)
				}
			}
		case "string":
			return extractStringContent(child, content)
		}
	}
	return ""
}

// extractStringContent returns a string literal's text without quotes.
func extractStringContent(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "string_fragment" {
			return child.Content(content)
		}
	}
	raw := node.Content(content)
	return strings.Trim(raw, "\"'`")
}

// grammarFor picks the tree-sitter grammar for a file path.
func grammarFor(filePath string) *sitter.Language {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// languageFor names the grammar family for metrics.
func languageFor(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return "typescript"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	default:
		return "unknown"
	}
}

var _ Parser = (*TypeScriptParser)(nil)
