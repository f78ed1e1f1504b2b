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

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNilTree is returned when Annotate is called without a tree.
	ErrNilTree = errors.New("tree must not be nil")

	// ErrFileNotFound is returned when a closure is requested for a path
	// that is not in the index.
	ErrFileNotFound = errors.New("file not found in graph")

	// ErrInvalidContentPattern is returned when the content file pattern
	// does not compile.
	ErrInvalidContentPattern = errors.New("invalid content pattern")
)
