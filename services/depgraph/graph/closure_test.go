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
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

func closureOf(t *testing.T, g *Graph, candidate string) *Closure {
	t.Helper()
	c, err := g.Closure(context.Background(), candidate)
	require.NoError(t, err)
	return c
}

// =============================================================================
// Content matching
// =============================================================================

func TestMatchContent_ExactSibling(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"widgets/widget.ts":         nil,
		"widgets/widget.tsx":        nil,
		"widgets/widget.content.ts": nil,
		"widgets/other.tsx":         nil,
		"elsewhere/widget.ts":       nil,
	})

	edges := g.MatchContent()
	assert.Equal(t, []ContentEdge{
		{Owner: "widgets/widget.ts", Target: "widgets/widget.content.ts"},
		{Owner: "widgets/widget.tsx", Target: "widgets/widget.content.ts"},
	}, edges)
	assert.Empty(t, g.ContentEdges("widgets/other.tsx"))
	assert.Equal(t, 2, g.Stats().ContentEdges)
	assert.Equal(t, 0, g.Stats().ApproximateContentEdges)
}

func TestMatchContent_FallbackUnderDirectory(t *testing.T) {
	exporter := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Quiet: true, Exporter: exporter})

	g := annotate(t, map[string][]model.ImportEdge{
		"blocks/login/page.tsx":           {rel("./form")},
		"blocks/login/form.tsx":           nil,
		"blocks/login/nested/card.tsx":    nil,
		"blocks/login/strings.content.ts": nil,
		"blocks/signup/page.tsx":          nil,
	}, WithLogger(logger))

	edges := g.MatchContent()
	// form.tsx has an importer, so only zero-incoming files qualify.
	assert.Equal(t, []ContentEdge{
		{Owner: "blocks/login/nested/card.tsx", Target: "blocks/login/strings.content.ts", Approximate: true},
		{Owner: "blocks/login/page.tsx", Target: "blocks/login/strings.content.ts", Approximate: true},
	}, edges)
	assert.Equal(t, 2, g.Stats().ApproximateContentEdges)
	assert.Len(t, exporter.Messages(logging.LevelWarn), 2)
}

func TestMatchContent_FallbackToNearestAncestor(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"app/page.tsx":                 {rel("./helpers/util")},
		"app/helpers/util.ts":          nil,
		"app/helpers/text.content.tsx": nil,
		"other/root.tsx":               nil,
	})

	edges := g.MatchContent()
	require.Len(t, edges, 1)
	assert.Equal(t, ContentEdge{Owner: "app/page.tsx", Target: "app/helpers/text.content.tsx", Approximate: true}, edges[0])
}

func TestMatchContent_FallbackReachesRoot(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"index.tsx":             nil,
		"deep/a/b/x.content.ts": nil,
	})

	edges := g.MatchContent()
	require.Len(t, edges, 1)
	assert.Equal(t, "index.tsx", edges[0].Owner)
	assert.True(t, edges[0].Approximate)
}

func TestMatchContent_StaticallyImportedContentSkipsFallback(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"a.tsx":             {rel("./labels.content")},
		"labels.content.ts": nil,
		"b.tsx":             nil,
	})

	assert.Empty(t, g.MatchContent())
}

func TestMatchContent_CustomPattern(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"card.tsx":       nil,
		"card.i18n.json": nil,
	}, WithContentPattern(regexp.MustCompile(`\.i18n\.json$`)))

	edges := g.MatchContent()
	assert.Equal(t, []ContentEdge{{Owner: "card.tsx", Target: "card.i18n.json"}}, edges)
	assert.Equal(t, FileTypeFile, g.FileType("card.i18n.json"))
}

func TestMatchContent_Repeatable(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"w.ts":         nil,
		"w.content.ts": nil,
	})

	first := g.MatchContent()
	second := g.MatchContent()
	assert.Equal(t, first, second)
	assert.Len(t, g.ContentEdges("w.ts"), 1)
}

// =============================================================================
// Closure
// =============================================================================

func TestClosure_EndToEndExample(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"a.ts": {rel("./b")},
		"b.ts": {pkg("left-pad", "1.0.0")},
	})
	g.MatchContent()

	c := closureOf(t, g, "a.ts")
	assert.Equal(t, "a.ts", c.Candidate)
	assert.Equal(t, []string{"a.ts", "b.ts"}, c.FileDependencies)
	assert.Equal(t, []string{"left-pad@1.0.0"}, c.Dependencies)
	assert.Empty(t, c.DevDependencies)
	assert.Empty(t, c.RegistryDependencies)
	assert.Equal(t, []ClosureFile{
		{Path: "a.ts", Type: FileTypeLib, Target: "~/a.ts"},
		{Path: "b.ts", Type: FileTypeLib, Target: "~/b.ts"},
	}, c.Files)
	assert.False(t, c.Approximate)
}

func TestClosure_ContentFileIncluded(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"widget.ts":         nil,
		"widget.content.ts": nil,
	})
	g.MatchContent()

	c := closureOf(t, g, "widget.ts")
	assert.Equal(t, []string{"widget.content.ts", "widget.ts"}, c.FileDependencies)
	assert.Equal(t, []ClosureFile{
		{Path: "widget.content.ts", Type: FileTypeFile, Target: "~/widget.content.ts"},
		{Path: "widget.ts", Type: FileTypeLib, Target: "~/widget.ts"},
	}, c.Files)
	assert.Equal(t, []ContentEdge{{Owner: "widget.ts", Target: "widget.content.ts"}}, c.ContentEdges)
	assert.False(t, c.Approximate)
}

func TestClosure_ApproximateFlag(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"page.tsx":             nil,
		"copy/hero.content.ts": nil,
	})
	g.MatchContent()

	c := closureOf(t, g, "page.tsx")
	assert.Contains(t, c.FileDependencies, "copy/hero.content.ts")
	assert.True(t, c.Approximate)
}

func TestClosure_CycleSafety(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"a.tsx": {rel("./b")},
		"b.tsx": {rel("./a"), pkg("react", "18.2.0")},
	})
	g.MatchContent()

	assert.Empty(t, candidatePaths(g))

	for _, start := range []string{"a.tsx", "b.tsx"} {
		c := closureOf(t, g, start)
		assert.Equal(t, []string{"a.tsx", "b.tsx"}, c.FileDependencies)
		assert.Equal(t, []string{"react@18.2.0"}, c.Dependencies)
	}
}

func TestClosure_SharedDependenciesOnce(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"top.tsx":    {rel("./left"), rel("./right")},
		"left.tsx":   {rel("./shared"), pkg("clsx", "2.0.0")},
		"right.tsx":  {rel("./shared"), pkg("clsx", "2.0.0"), devPkg("vitest", "1.0.0")},
		"shared.ts":  {pkg("react", "")},
		"unused.tsx": nil,
	})
	g.MatchContent()

	c := closureOf(t, g, "top.tsx")
	assert.Equal(t, []string{"left.tsx", "right.tsx", "shared.ts", "top.tsx"}, c.FileDependencies)
	assert.Equal(t, []string{"clsx@2.0.0", "react"}, c.Dependencies)
	assert.Equal(t, []string{"vitest@1.0.0"}, c.DevDependencies)
	assert.Equal(t, FileTypeComponent, c.Files[0].Type)
	assert.Equal(t, 2, countOf(t, g, "shared.ts"))
}

func TestClosure_RegistryEdgesNotTraversed(t *testing.T) {
	registryEdge := model.ImportEdge{
		Line:               1,
		ModuleSpecifier:    "@/registry/ui/button",
		PathAlias:          "@/*",
		ResolvedPaths:      []string{"registry/ui/button"},
		RegistryDependency: &model.PackageReference{Name: "button", Type: "ui"},
	}
	g := annotate(t, map[string][]model.ImportEdge{
		"blocks/login.tsx":       {registryEdge, rel("./local")},
		"blocks/local.ts":        nil,
		"registry/ui/button.tsx": {pkg("@radix-ui/react-slot", "1.0.2")},
	})
	g.MatchContent()

	// The registry file is still counted as imported.
	assert.Equal(t, 1, countOf(t, g, "registry/ui/button.tsx"))

	c := closureOf(t, g, "blocks/login.tsx")
	assert.Equal(t, []string{"ui:button"}, c.RegistryDependencies)
	assert.Equal(t, []string{"blocks/local.ts", "blocks/login.tsx"}, c.FileDependencies)
	assert.Empty(t, c.Dependencies)
}

func TestClosure_Idempotent(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{
		"a.tsx":         {rel("./b"), rel("./c")},
		"b.ts":          {rel("./c"), pkg("x", "1")},
		"c.ts":          {rel("./a")},
		"a.content.tsx": nil,
	})
	g.MatchContent()

	first := closureOf(t, g, "a.tsx")
	second := closureOf(t, g, "a.tsx")
	assert.Equal(t, first, second)
}

func TestClosure_UnknownCandidate(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{"a.ts": nil})

	_, err := g.Closure(context.Background(), "missing.ts")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestClosure_ResolvesCandidateThroughIndex(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{"ui/card/index.tsx": nil})

	c := closureOf(t, g, "./ui/card")
	assert.Equal(t, "ui/card/index.tsx", c.Candidate)
}

func TestFileType(t *testing.T) {
	g := annotate(t, map[string][]model.ImportEdge{"a.ts": nil})

	tests := map[string]string{
		"a.tsx":          FileTypeComponent,
		"a.JSX":          FileTypeComponent,
		"a.ts":           FileTypeLib,
		"a.js":           FileTypeLib,
		"a.mjs":          FileTypeFile,
		"a.css":          FileTypeFile,
		"a.content.tsx":  FileTypeFile,
		"x/y.content.js": FileTypeFile,
	}
	for p, want := range tests {
		assert.Equal(t, want, g.FileType(p), p)
	}
}
