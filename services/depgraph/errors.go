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

import "errors"

// Sentinel errors for analyzer configuration.
var (
	ErrEmptyRoot        = errors.New("root must not be empty")
	ErrPathNotExist     = errors.New("path does not exist")
	ErrPathNotDirectory = errors.New("path is not a directory")
)
