// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/uiregistry/cmd/uiregistry/internal/config"
	"github.com/AleutianAI/uiregistry/services/depgraph/api"
	"github.com/AleutianAI/uiregistry/services/depgraph/registry"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package.json":      `{"name":"fixture","dependencies":{"react":"^18.0.0"}}`,
		"src/card.tsx":      "import React from \"react\";\nimport { cn } from \"./utils\";\n",
		"src/utils.ts":      "export const cn = () => \"\";\n",
		"node_modules/x.js": "import \"./ignored\";\n",
		"src/styles.css":    "body {}\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	configPath, rootDir, verbose, logJSON = "", "", false, false
	scanJSONOutput, candidatesJSONOutput = false, false
	closureJSONOutput, closureAll, closureInteractive = false, false, false
	buildOutputDir = ""
	serveAddr, serveNoWatch = "", false
	watchDebounce = 200 * time.Millisecond

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestScan_JSONTree(t *testing.T) {
	root := writeFixture(t)

	stdout, _, err := execute(t, "scan", "--root", root, "--json")
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &tree))
	assert.Equal(t, "directory", tree["type"])
	assert.NotEmpty(t, tree["children"])
}

func TestScan_Summary(t *testing.T) {
	root := writeFixture(t)

	stdout, stderr, err := execute(t, "scan", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUMMARY: directories=")
	assert.Contains(t, stdout, "candidates=1")
	assert.Contains(t, stderr, "PROGRESS: Analyzing")
}

func TestCandidates_JSON(t *testing.T) {
	root := writeFixture(t)

	stdout, _, err := execute(t, "candidates", "--root", root, "--json")
	require.NoError(t, err)

	var views []api.Candidate
	require.NoError(t, json.Unmarshal([]byte(stdout), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "src/card.tsx", views[0].Path)
	assert.Equal(t, "component", views[0].Type)
}

func TestClosure_JSON(t *testing.T) {
	root := writeFixture(t)

	stdout, _, err := execute(t, "closure", "--root", root, "--json", "src/card")
	require.NoError(t, err)

	var closures []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &closures))
	require.Len(t, closures, 1)
	assert.Equal(t, "src/card.tsx", closures[0]["candidate"])
	assert.Equal(t, []any{"react@^18.0.0"}, closures[0]["dependencies"])
	assert.Equal(t, []any{"src/card.tsx", "src/utils.ts"}, closures[0]["fileDependencies"])
}

func TestClosure_RequiresSelection(t *testing.T) {
	root := writeFixture(t)

	_, _, err := execute(t, "closure", "--root", root)
	assert.ErrorIs(t, err, errNoSelection)
}

func TestClosure_UnknownFile(t *testing.T) {
	root := writeFixture(t)

	_, _, err := execute(t, "closure", "--root", root, "src/missing.tsx")
	assert.Error(t, err)
}

func TestBuild_WritesItemsAndIndex(t *testing.T) {
	root := writeFixture(t)
	out := filepath.Join(t.TempDir(), "r")

	stdout, _, err := execute(t, "build", "--root", root, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK: wrote 1 item(s)")

	data, err := os.ReadFile(filepath.Join(out, "card.json"))
	require.NoError(t, err)
	var item registry.Item
	require.NoError(t, json.Unmarshal(data, &item))
	assert.Equal(t, "card", item.Name)
	assert.Equal(t, []string{"react@^18.0.0"}, item.Dependencies)
	assert.Len(t, item.Files, 2)

	data, err = os.ReadFile(filepath.Join(out, registry.IndexFileName))
	require.NoError(t, err)
	var index []registry.IndexEntry
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index, 1)
	assert.Equal(t, "card", index[0].Name)
}

func TestScan_WritesLogFileFromConfig(t *testing.T) {
	root := writeFixture(t)
	confDir := t.TempDir()
	confPath := filepath.Join(confDir, config.DefaultFileName)
	require.NoError(t, os.WriteFile(confPath, []byte("root: "+root+"\nlog_dir: logs\n"), 0o644))

	_, _, err := execute(t, "scan", "--config", confPath)
	teardown()
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(confDir, "logs", "uiregistry_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan complete")
	assert.Contains(t, string(data), `"run_id"`)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "scan", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(assert.AnError))
	assert.Equal(t, 2, exitCode(config.ErrInvalidConfig))
	assert.Equal(t, 2, exitCode(&config.ParseError{Path: "x", Err: assert.AnError}))
}
