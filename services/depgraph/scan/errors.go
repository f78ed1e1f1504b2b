// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"errors"
	"fmt"
)

// Sentinel errors for scanner configuration.
var (
	// ErrNoParser indicates Options.Parser was nil.
	ErrNoParser = errors.New("scanner requires a parser")

	// ErrNoClassifier indicates Options.Classifier was nil.
	ErrNoClassifier = errors.New("scanner requires a classifier")

	// ErrNoRoot indicates Options.Root was empty.
	ErrNoRoot = errors.New("scanner requires a root path")
)

// Operations recorded in FileError.Op.
const (
	OpStat    = "stat"
	OpReadDir = "readdir"
	OpRead    = "read"
)

// FileError is the failure that aborted a scan.
type FileError struct {
	// Path is the root-relative path of the file or directory.
	Path string

	// Op is the operation that failed: stat, readdir or read.
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}
