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
	"errors"
	"fmt"
)

// ErrInvalidRoot indicates the project root does not exist or is not a
// directory. This is the only fatal error a build can return for input
// problems; per-file failures are collected, not propagated.
var ErrInvalidRoot = errors.New("invalid project root")

// FileError records a per-file failure that was skipped during a build.
type FileError struct {
	// Path is the file's path relative to the project root.
	Path string `json:"path"`

	// Err is the read or parse failure.
	Err error `json:"-"`

	// Message is the failure rendered for serialization.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying failure.
func (e *FileError) Unwrap() error {
	return e.Err
}
