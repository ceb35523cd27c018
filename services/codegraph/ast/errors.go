// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failures. Callers should use errors.Is to
// distinguish failure modes.
var (
	// ErrFileTooLarge indicates the source exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrInvalidContent indicates the source is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrSyntax indicates tree-sitter reported syntax errors in the source.
	ErrSyntax = errors.New("source contains syntax errors")
)

// ParseError carries the file position context of a parse failure.
type ParseError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// WrapParseError wraps err with file context, preserving the error chain.
func WrapParseError(err error, filePath, message string) error {
	if err == nil {
		return nil
	}
	return &ParseError{FilePath: filePath, Message: message, Cause: err}
}
