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
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test source code samples (embedded, no file I/O).
const (
	testTSImports = `import React from "react";
import { cn } from "@/lib/utils";
import type { Props } from './types';
import * as Icons from '@radix-ui/react-icons';
import './styles.css';

export function Button(props: Props) {
  return null;
}
`

	testTSImportEquals = `import fs = require("fs");
import local = require('./local');
import Alias = Namespace.Inner;
`

	testTSXComponent = `import { Card } from "../card/card";

export default function Widget() {
  return <Card title="x" />;
}
`

	testJSXComponent = `import React from 'react'
import { helper } from './helper'

export const View = () => <div>{helper()}</div>
`

	testMultiline = `// header comment

import {
  a,
  b,
} from "./letters";
`

	testNotImports = `const x = require("./cjs");
export { y } from "./reexport";
async function load() { return import("./dynamic"); }
function inner() {
  // nested statements are not top-level imports
}
`
)

func specifiers(imports []RawImport) []string {
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		out = append(out, imp.Specifier)
	}
	return out
}

func TestTypeScriptParser_ConventionalImports(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testTSImports), "ui/button.ts")
	require.NoError(t, err)

	assert.Equal(t, []string{"react", "@/lib/utils", "./types", "@radix-ui/react-icons", "./styles.css"}, specifiers(imports))
	assert.Equal(t, 1, imports[0].Line)
	assert.Equal(t, 5, imports[4].Line)
	assert.Equal(t, `import React from "react";`, imports[0].Text)
	assert.Equal(t, `import './styles.css';`, imports[4].Text)
}

func TestTypeScriptParser_ImportEqualsExternalModule(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testTSImportEquals), "legacy.ts")
	require.NoError(t, err)

	// The namespace alias form has no module reference and is skipped.
	assert.Equal(t, []string{"fs", "./local"}, specifiers(imports))
	assert.Equal(t, 2, imports[1].Line)
	assert.True(t, strings.HasPrefix(imports[1].Text, "import local = require("))
}

func TestTypeScriptParser_TSX(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testTSXComponent), "widgets/widget.tsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"../card/card"}, specifiers(imports))
}

func TestTypeScriptParser_JSX(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testJSXComponent), "view.jsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"react", "./helper"}, specifiers(imports))
	assert.Equal(t, 2, imports[1].Line)
}

func TestTypeScriptParser_MultilineStatementUsesFirstLine(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testMultiline), "a.ts")
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, 3, imports[0].Line)
	assert.Contains(t, imports[0].Text, "a,\n  b,")
}

func TestTypeScriptParser_IgnoresNonImportForms(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(testNotImports), "a.ts")
	require.NoError(t, err)
	assert.Empty(t, imports)
	assert.NotNil(t, imports)
}

func TestTypeScriptParser_EmptyFile(t *testing.T) {
	parser := NewTypeScriptParser()

	imports, err := parser.Parse(context.Background(), []byte(""), "empty.ts")
	require.NoError(t, err)
	assert.Empty(t, imports)
}

func TestTypeScriptParser_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		_, err := NewTypeScriptParser().Parse(context.Background(), []byte("x"), "style.css")
		assert.True(t, errors.Is(err, ErrUnsupportedLanguage))
	})

	t.Run("file too large", func(t *testing.T) {
		parser := NewTypeScriptParser(WithMaxFileSize(8))
		_, err := parser.Parse(context.Background(), []byte(`import "./abc";`), "a.ts")
		assert.True(t, errors.Is(err, ErrFileTooLarge))
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		_, err := NewTypeScriptParser().Parse(context.Background(), []byte{0xff, 0xfe, 0xfd}, "a.ts")
		assert.True(t, errors.Is(err, ErrInvalidContent))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewTypeScriptParser().Parse(ctx, []byte(`import "./a";`), "a.ts")
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestTypeScriptParser_SyntaxErrorsStillYieldImports(t *testing.T) {
	src := `import { ok } from "./ok";
export function broken( {
`
	imports, err := NewTypeScriptParser().Parse(context.Background(), []byte(src), "broken.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"./ok"}, specifiers(imports))
}

func TestTypeScriptParser_ConcurrentUse(t *testing.T) {
	parser := NewTypeScriptParser()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			imports, err := parser.Parse(context.Background(), []byte(testTSImports), "a.ts")
			if err != nil {
				errs <- err
				return
			}
			if len(imports) != 5 {
				errs <- errors.New("unexpected import count")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestTypeScriptParser_Extensions(t *testing.T) {
	exts := NewTypeScriptParser().Extensions()
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		assert.Contains(t, exts, ext)
	}
}
