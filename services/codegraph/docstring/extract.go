// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docstring extracts and parses Python docstrings. The results are
// transient enrichment for stored graph documents; nothing here feeds back
// into graph construction.
package docstring

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
)

// Index maps function names to their raw docstrings.
//
// Description:
//
//	Names are keyed bare, matching the flat identity of graph nodes. When
//	two files define a same-named function with docstrings, the one from
//	the file visited last wins, mirroring the flat-graph collapse.
//
// Thread Safety: Immutable after ExtractFromDirectory returns.
type Index struct {
	byName map[string]string
}

// Lookup returns the raw docstring recorded for a function name.
func (x *Index) Lookup(functionName string) (string, bool) {
	doc, ok := x.byName[functionName]
	return doc, ok
}

// Len returns the number of docstrings in the index.
func (x *Index) Len() int {
	return len(x.byName)
}

// ExtractFromDirectory walks root and indexes the docstring of every
// function definition, async ones included.
//
// Files that cannot be read or parsed are logged and skipped; the walk
// continues.
func ExtractFromDirectory(ctx context.Context, root string) (*Index, error) {
	idx := &Index{byName: make(map[string]string)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("docstring walk error", slog.String("path", path), slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("skipping unreadable file", slog.String("file", path), slog.String("error", readErr.Error()))
			return nil
		}

		file, parseErr := ast.ParsePython(ctx, content, filepath.ToSlash(path))
		if parseErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("skipping unparsable file", slog.String("file", path), slog.String("error", parseErr.Error()))
			return nil
		}
		defer file.Close()

		indexFile(file, idx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("docstring extraction complete",
		slog.String("root", root),
		slog.Int("functions", idx.Len()))

	return idx, nil
}

// ExtractFromSource indexes docstrings from a single parsed source, mainly
// for tests and single-file tooling.
func ExtractFromSource(file *ast.SourceFile) *Index {
	idx := &Index{byName: make(map[string]string)}
	indexFile(file, idx)
	return idx
}

func indexFile(file *ast.SourceFile, idx *Index) {
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "function_definition" {
			name := node.ChildByFieldName("name")
			body := node.ChildByFieldName("body")
			if name != nil && body != nil {
				if doc := firstDocstring(file, body); doc != "" {
					idx.byName[file.Text(name)] = doc
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(file.Root())
}

// firstDocstring returns the docstring of a function body, which is the
// string expression statement at the top of the block.
func firstDocstring(file *ast.SourceFile, body *sitter.Node) string {
	if body.ChildCount() == 0 {
		return ""
	}
	stmt := body.Child(0)
	if stmt.Type() != "expression_statement" || stmt.ChildCount() == 0 {
		return ""
	}
	str := stmt.Child(0)
	if str.Type() != "string" {
		return ""
	}
	return stripQuotes(file.Text(str))
}

// stripQuotes removes string prefixes and quote delimiters.
func stripQuotes(raw string) string {
	raw = strings.TrimLeft(raw, "rRbBuUfF")
	return strings.TrimSpace(strings.Trim(raw, `"'`))
}
