// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for values that
// end up in file paths.
//
// Names derived from scanned source files become output file names, so
// they are checked here before anything is written.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxFileNameLength is the longest accepted name, in bytes.
const MaxFileNameLength = 255

// ErrInvalidFileName is wrapped by every ValidateFileName failure.
var ErrInvalidFileName = errors.New("invalid file name")

// ValidateFileName checks that name is usable as a single path element.
//
// Valid names:
//   - 1-255 bytes
//   - not "." or ".."
//   - no "/" or "\" separators
//   - no control characters
//
// Example:
//
//	if err := validation.ValidateFileName(item.Name); err != nil {
//	    return err
//	}
//	p := filepath.Join(dir, item.Name+".json")
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidFileName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is a relative path element", ErrInvalidFileName, name)
	case len(name) > MaxFileNameLength:
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidFileName, len(name), MaxFileNameLength)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFileName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidFileName, name)
		}
	}
	return nil
}

// ValidateFileNames validates several names.
// Returns an error listing all invalid names if any fail validation.
func ValidateFileNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateFileName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, invalid)
	}
	return nil
}
