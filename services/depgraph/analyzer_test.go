// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
	"github.com/AleutianAI/uiregistry/services/depgraph/scan"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func analyze(t *testing.T, opts Options) *Result {
	t.Helper()
	a, err := NewAnalyzer(opts)
	require.NoError(t, err)
	res, err := a.Analyze(context.Background())
	require.NoError(t, err)
	return res
}

func paths(files []*model.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestAnalyze_EndToEndExample(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.ts": "import './b';\n",
		"b.ts": "import pkg from 'left-pad';\n",
	})

	res := analyze(t, Options{
		Root: root,
		Manifests: []model.Manifest{
			{Dir: ".", Dependencies: map[string]string{"left-pad": "1.0.0"}},
		},
	})

	assert.Equal(t, []string{"a.ts"}, paths(res.Candidates()))

	b, ok := res.Graph.Lookup("b.ts")
	require.True(t, ok)
	assert.Equal(t, 1, b.Meta.ImportCount)

	c, err := res.Closure(context.Background(), "a.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts", "b.ts"}, c.FileDependencies)
	assert.Equal(t, []string{"left-pad@1.0.0"}, c.Dependencies)
}

func TestAnalyze_WidgetContentExample(t *testing.T) {
	root := writeTree(t, map[string]string{
		"widget.ts":         "export const Widget = 1;\n",
		"widget.content.ts": "export default { title: 'x' };\n",
	})

	res := analyze(t, Options{Root: root})

	c, err := res.Closure(context.Background(), "widget.ts")
	require.NoError(t, err)
	assert.Contains(t, c.FileDependencies, "widget.content.ts")
	assert.Contains(t, c.Files, graph.ClosureFile{Path: "widget.content.ts", Type: graph.FileTypeFile, Target: "~/widget.content.ts"})
	assert.False(t, c.Approximate)
	assert.Equal(t, []graph.ContentEdge{{Owner: "widget.ts", Target: "widget.content.ts"}}, res.Content)
}

func TestAnalyze_AliasesAndRegistry(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app/page.tsx": `import { Button } from "@/registry/default/ui/button";
import { cn } from "@/lib/utils";
import { Slot } from "@radix-ui/react-slot";
`,
		"lib/utils.ts":                       `import { clsx } from "clsx";`,
		"registry/default/ui/button.tsx":     `import { cn } from "@/lib/utils";`,
		"node_modules/clsx/index.js":         "",
		"registry/default/ui/button.test.ts": "import { describe } from \"vitest\";\nimport { Button } from \"./button\";\n",
	})

	res := analyze(t, Options{
		Root: root,
		Manifests: []model.Manifest{{
			Dir:             ".",
			Dependencies:    map[string]string{"clsx": "^2.1.0", "@radix-ui/react-slot": "^1.0.2"},
			DevDependencies: map[string]string{"vitest": "^1.6.0"},
		}},
		PathMappings: []model.PathMapping{
			{Alias: "@/*", Targets: []string{filepath.Join(root, "*")}, SourceFile: "tsconfig.json"},
		},
		Registries: []model.KnownRegistryEntry{model.NewKnownRegistryEntry("./registry/default", "ui")},
	})

	assert.Equal(t, []string{"app/page.tsx", "registry/default/ui/button.test.ts"}, paths(res.Candidates()))

	utils, ok := res.Graph.Lookup("lib/utils.ts")
	require.True(t, ok)
	assert.Equal(t, 2, utils.Meta.ImportCount)

	c, err := res.Closure(context.Background(), "app/page.tsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"ui:ui-button"}, c.RegistryDependencies)
	assert.Equal(t, []string{"app/page.tsx", "lib/utils.ts"}, c.FileDependencies)
	assert.Equal(t, []string{"@radix-ui/react-slot@^1.0.2", "clsx@^2.1.0"}, c.Dependencies)

	c, err = res.Closure(context.Background(), "registry/default/ui/button.test.ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"vitest@^1.6.0"}, c.DevDependencies)
	assert.Contains(t, c.FileDependencies, "registry/default/ui/button.tsx")

	items, err := res.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "button.test", items[0].Name)
	assert.Equal(t, "page", items[1].Name)
}

func TestAnalyze_TreeJSONShape(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.ts": "import './b';\n",
		"src/b.ts": "",
	})

	res := analyze(t, Options{Root: root})

	data, err := json.Marshal(res.Tree)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Path     string `json:"path"`
		Children []struct {
			Type     string `json:"type"`
			Path     string `json:"path"`
			Children []struct {
				Type    string `json:"type"`
				Path    string `json:"path"`
				Imports []struct {
					Line           int    `json:"line"`
					FileDependency string `json:"fileDependency"`
				} `json:"imports"`
				Meta struct {
					ImportCount int `json:"importCount"`
				} `json:"meta"`
			} `json:"children"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "directory", decoded.Type)
	require.Len(t, decoded.Children, 1)
	src := decoded.Children[0]
	assert.Equal(t, "src", src.Path)
	require.Len(t, src.Children, 2)
	assert.Equal(t, "file", src.Children[0].Type)
	assert.Equal(t, "./b", src.Children[0].Imports[0].FileDependency)
	assert.Equal(t, 1, src.Children[1].Meta.ImportCount)
}

func TestAnalyze_RescanRecomputesCounts(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.ts": "import './b';\n",
		"b.ts": "",
	})
	a, err := NewAnalyzer(Options{Root: root})
	require.NoError(t, err)

	res, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts"}, paths(res.Candidates()))

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("export {}\n"), 0o644))

	res, err = a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts", "b.ts"}, paths(res.Candidates()))
}

func TestAnalyze_ScanFailureAborts(t *testing.T) {
	root := writeTree(t, map[string]string{"ok.ts": ""})
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.ts"), filepath.Join(root, "bad.ts")))

	a, err := NewAnalyzer(Options{Root: root})
	require.NoError(t, err)

	res, err := a.Analyze(context.Background())
	assert.Nil(t, res)
	var fe *scan.FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "bad.ts", fe.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyze_UnparsableFileKeptInGraph(t *testing.T) {
	root := writeTree(t, map[string]string{"ok.ts": `import "./legacy";`})
	require.NoError(t, os.WriteFile(filepath.Join(root, "legacy.js"), []byte{0xc3, 0x28}, 0o644))

	a, err := NewAnalyzer(Options{Root: root})
	require.NoError(t, err)

	res, err := a.Analyze(context.Background())
	require.NoError(t, err)

	legacy, ok := res.Graph.Lookup("legacy.js")
	require.True(t, ok)
	assert.Empty(t, legacy.Imports)
	assert.Equal(t, 1, legacy.Meta.ImportCount)
	assert.Equal(t, 2, res.ScanStats.Files)
}

func TestNewAnalyzer_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.ts")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewAnalyzer(Options{})
	assert.ErrorIs(t, err, ErrEmptyRoot)

	_, err = NewAnalyzer(Options{Root: filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, ErrPathNotExist)

	_, err = NewAnalyzer(Options{Root: file})
	assert.ErrorIs(t, err, ErrPathNotDirectory)

	_, err = NewAnalyzer(Options{Root: dir, ContentPattern: "("})
	assert.ErrorIs(t, err, graph.ErrInvalidContentPattern)

	a, err := NewAnalyzer(Options{Root: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, a.Root())
}

func TestResult_ClosuresDefaultsToCandidates(t *testing.T) {
	root := writeTree(t, map[string]string{
		"x.tsx": "import './y';",
		"y.tsx": "",
		"z.tsx": "",
	})
	res := analyze(t, Options{Root: root})

	all, err := res.Closures(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "x.tsx", all[0].Candidate)
	assert.Equal(t, "z.tsx", all[1].Candidate)

	_, err = res.Closures(context.Background(), "nope.tsx")
	assert.ErrorIs(t, err, graph.ErrFileNotFound)
}
