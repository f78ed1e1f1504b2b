// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves the latest analysis of a root over HTTP.
//
// The handlers never run an analysis themselves. A caller (the CLI's
// serve command) analyzes, publishes the Result with SetResult, and
// republishes after every rescan; requests always see one complete
// Result.
package api

import (
	"github.com/AleutianAI/uiregistry/services/depgraph"
	"github.com/AleutianAI/uiregistry/services/depgraph/graph"
	"github.com/AleutianAI/uiregistry/services/depgraph/scan"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// Error codes used in ErrorResponse.Code.
const (
	CodeNotReady     = "NOT_READY"
	CodeMissingParam = "MISSING_PARAMETER"
	CodeFileNotFound = "FILE_NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// HealthResponse is the response for GET /v1/uiregistry/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/uiregistry/ready.
type ReadyResponse struct {
	// Ready is true once a first analysis has been published.
	Ready bool `json:"ready"`

	// Root is the analyzed directory, empty until ready.
	Root string `json:"root,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}

// StatsResponse combines scan and graph statistics.
type StatsResponse struct {
	Root  string      `json:"root"`
	Scan  scan.Stats  `json:"scan"`
	Graph graph.Stats `json:"graph"`
}

// Candidate is one component candidate with its matched content files.
type Candidate struct {
	Path    string   `json:"path"`
	Type    string   `json:"type"`
	Content []string `json:"content,omitempty"`
}

// CandidateList returns the result's candidates sorted by path.
func CandidateList(r *depgraph.Result) []Candidate {
	files := r.Candidates()
	out := make([]Candidate, 0, len(files))
	for _, f := range files {
		c := Candidate{Path: f.Path, Type: r.Graph.FileType(f.Path)}
		for _, e := range r.Graph.ContentEdges(f.Path) {
			c.Content = append(c.Content, e.Target)
		}
		out = append(out, c)
	}
	return out
}
