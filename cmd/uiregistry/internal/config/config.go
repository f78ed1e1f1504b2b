// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the uiregistry tool configuration and discovers the
// package manifests and path aliases the analyzer consumes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/uiregistry/services/depgraph/model"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "uiregistry.yaml"

// RegistryConfig is one known registry prefix.
type RegistryConfig struct {
	// Prefix is a root-relative directory, e.g. "./registry/default".
	Prefix string `yaml:"prefix" validate:"required"`

	// Type is the registry tag reported for matching imports.
	Type string `yaml:"type" validate:"required"`
}

// TelemetryConfig selects OpenTelemetry exporters and the serve address.
type TelemetryConfig struct {
	// Traces is "none", "stdout" or "otlp".
	Traces string `yaml:"traces" validate:"oneof=none stdout otlp"`

	// Metrics is "none", "stdout" or "prometheus".
	Metrics string `yaml:"metrics" validate:"oneof=none stdout prometheus"`

	// OTLPEndpoint is the OTLP gRPC receiver used when Traces is "otlp".
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Traces otlp"`
}

// ServeConfig configures the HTTP read API.
type ServeConfig struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Config is the uiregistry.yaml file.
type Config struct {
	Root           string           `yaml:"root" validate:"required"`
	Extensions     []string         `yaml:"extensions" validate:"required,min=1,dive,startswith=."`
	SkipDirs       []string         `yaml:"skip_dirs" validate:"dive,required"`
	ContentPattern string           `yaml:"content_pattern" validate:"omitempty,regexp"`
	Registries     []RegistryConfig `yaml:"registries" validate:"dive"`
	OutputDir      string           `yaml:"output_dir" validate:"required"`
	LogDir         string           `yaml:"log_dir"`
	Telemetry      TelemetryConfig  `yaml:"telemetry"`
	Serve          ServeConfig      `yaml:"serve"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Root:           ".",
		Extensions:     []string{".ts", ".tsx", ".js", ".jsx"},
		SkipDirs:       []string{"node_modules", ".git", "dist", "build", ".next"},
		ContentPattern: `\.content\.[cm]?[jt]sx?$`,
		OutputDir:      "public/r",
		Telemetry: TelemetryConfig{
			Traces:       "none",
			Metrics:      "none",
			OTLPEndpoint: "localhost:4317",
		},
		Serve: ServeConfig{Addr: ":8090"},
	}
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("regexp", validateRegexp)
}

// validateRegexp reports whether a string field compiles as a regexp.
func validateRegexp(fl validator.FieldLevel) bool {
	_, err := regexp.Compile(fl.Field().String())
	return err == nil
}

// Validate checks field constraints. Failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// KnownRegistries converts the registry list to model entries.
func (c *Config) KnownRegistries() []model.KnownRegistryEntry {
	entries := make([]model.KnownRegistryEntry, 0, len(c.Registries))
	for _, r := range c.Registries {
		entries = append(entries, model.NewKnownRegistryEntry(r.Prefix, r.Type))
	}
	return entries
}

// Load reads and validates a config file.
//
// Description:
//
//	With an empty path, DefaultFileName in the working directory is used
//	if it exists and Default() otherwise. An explicit path must exist.
//	Keys missing from the file keep their default values. A relative Root
//	or OutputDir is resolved against the file's directory.
//
// Outputs:
//   - *Config: The validated configuration.
//   - error: ErrConfigNotFound, *ParseError or ErrInvalidConfig.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(dir, cfg.Root)
	}
	if cfg.OutputDir != "" && !filepath.IsAbs(cfg.OutputDir) {
		cfg.OutputDir = filepath.Join(dir, cfg.OutputDir)
	}
	if cfg.LogDir != "" && !filepath.IsAbs(cfg.LogDir) && !strings.HasPrefix(cfg.LogDir, "~") {
		cfg.LogDir = filepath.Join(dir, cfg.LogDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
