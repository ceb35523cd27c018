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
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxFileSize is the largest source file the parser accepts.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize triggers a slow-parse warning in the logs.
	WarnFileSize = 1 * 1024 * 1024
)

// ParserOption configures ParsePython behavior.
type ParserOption func(*parserConfig)

type parserConfig struct {
	maxFileSize int64
}

// WithMaxFileSize sets the maximum file size the parser will accept.
func WithMaxFileSize(bytes int64) ParserOption {
	return func(c *parserConfig) {
		if bytes > 0 {
			c.maxFileSize = bytes
		}
	}
}

// SourceFile is a parsed Python source file.
//
// Description:
//
//	SourceFile pairs the original source bytes with the parse tree so that
//	downstream passes can slice node text without re-reading the file. The
//	tree is owned by the SourceFile; callers must Close it when done, after
//	which node handles are invalid.
//
// Thread Safety:
//
//	A SourceFile is read-only after construction and safe for concurrent
//	reads. Close must not race with readers.
type SourceFile struct {
	// FilePath is the path the content was read from, relative to the
	// project root with forward slashes.
	FilePath string

	// Content is the raw source.
	Content []byte

	tree      *sitter.Tree
	hasErrors bool
}

// Root returns the root node of the parse tree.
func (f *SourceFile) Root() *sitter.Node {
	return f.tree.RootNode()
}

// Text returns the source text covered by node.
func (f *SourceFile) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(f.Content)
}

// HasSyntaxErrors reports whether tree-sitter flagged syntax errors.
func (f *SourceFile) HasSyntaxErrors() bool {
	return f.hasErrors
}

// Close releases the underlying parse tree.
func (f *SourceFile) Close() {
	if f.tree != nil {
		f.tree.Close()
		f.tree = nil
	}
}

// ParsePython parses Python source into a SourceFile.
//
// Description:
//
//	Validates size and encoding, then parses with tree-sitter. A source
//	with syntax errors fails with ErrSyntax: downstream graph extraction
//	requires a fully valid tree, matching a strict-parser front end.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing;
//     tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Python source bytes. Must be valid UTF-8.
//   - filePath: Path for error reporting, relative with forward slashes.
//
// Outputs:
//   - *SourceFile: The parsed file. Caller must Close it.
//   - error: ErrFileTooLarge, ErrInvalidContent, ErrSyntax, or a context
//     error, each wrapped with file context.
//
// Thread Safety:
//
//	Safe for concurrent use; each call creates its own tree-sitter parser.
func ParsePython(ctx context.Context, content []byte, filePath string, opts ...ParserOption) (*SourceFile, error) {
	cfg := parserConfig{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(err, filePath, "parse canceled before start")
	}

	if int64(len(content)) > cfg.maxFileSize {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(
			fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), cfg.maxFileSize),
			filePath, "size check")
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(ErrInvalidContent, filePath, "encoding check")
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(err, filePath, "tree-sitter parse failed")
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(err, filePath, "parse canceled after tree-sitter")
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(ErrSyntax, filePath, "tree-sitter returned nil root node")
	}

	file := &SourceFile{
		FilePath:  filePath,
		Content:   content,
		tree:      tree,
		hasErrors: root.HasError(),
	}

	if file.hasErrors {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, WrapParseError(ErrSyntax, filePath, "syntax check")
	}

	span.SetAttributes(attribute.Bool("ast.has_errors", false))
	recordParseMetrics(ctx, time.Since(start), true)

	return file, nil
}
