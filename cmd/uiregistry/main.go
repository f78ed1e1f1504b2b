// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command uiregistry scans a JavaScript/TypeScript component library,
// builds its import graph and emits registry items for every component
// candidate.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/uiregistry/cmd/uiregistry/internal/config"
	"github.com/AleutianAI/uiregistry/pkg/logging"
	"github.com/AleutianAI/uiregistry/pkg/telemetry"
)

// =============================================================================
// GLOBAL STATE
// =============================================================================

var (
	configPath string
	rootDir    string
	verbose    bool
	logJSON    bool

	cfg    *config.Config
	logger *logging.Logger

	shutdownTelemetry func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "uiregistry",
	Short: "Build registry items from a component library's import graph",
	Long: `uiregistry parses every JavaScript and TypeScript file under a root,
classifies each import, counts incoming edges and reports the files
nothing imports as component candidates. For each candidate it computes
the transitive closure of files, npm dependencies and registry
dependencies, and can write them out as registry item JSON.

Configuration is read from uiregistry.yaml in the working directory
when present. package.json and tsconfig.json/jsconfig.json are
discovered from the root. OTEL_* variables may be set in a .env file.

Examples:
  uiregistry scan --json
  uiregistry candidates
  uiregistry closure src/components/card.tsx
  uiregistry build --out public/r
  uiregistry watch
  uiregistry serve --addr :8090`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to uiregistry.yaml (default: ./uiregistry.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "",
		"Directory to analyze (overrides the config root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Write logs to stderr as JSON")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(closureCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads configuration and builds the run logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if rootDir != "" {
		loaded.Root = rootDir
	}
	cfg = loaded

	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	logger = logging.New(logging.Config{
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
		Service: "uiregistry",
		JSON:    logJSON,
		LogDir:  cfg.LogDir,
	}).With("run_id", uuid.NewString())

	tcfg := telemetry.DefaultConfig()
	tcfg.TraceExporter = cfg.Telemetry.Traces
	tcfg.MetricExporter = cfg.Telemetry.Metrics
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.Writer = cmd.ErrOrStderr()
	shutdown, err := telemetry.Init(cmd.Context(), tcfg.WithEnv())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	shutdownTelemetry = shutdown
	return nil
}

// teardown flushes telemetry and closes the logger.
func teardown() {
	if shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
		shutdownTelemetry = nil
	}
	if logger != nil {
		_ = logger.Close()
	}
}

func main() {
	// OTEL_* settings may come from a .env file in the working directory.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to 2 and everything else to 1.
func exitCode(err error) int {
	var parseErr *config.ParseError
	switch {
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrConfigNotFound),
		errors.As(err, &parseErr):
		return 2
	default:
		return 1
	}
}
