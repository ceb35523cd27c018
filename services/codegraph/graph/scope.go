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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
)

// scopeSpan is the byte extent of one function definition.
type scopeSpan struct {
	name  string
	start uint32
	end   uint32
}

// ScopeIndex resolves which function encloses a byte offset.
//
// Description:
//
//	Built in a single pre-order traversal of a parsed file, the index holds
//	the byte span of every sync function definition as a side table. Lookup
//	never touches the tree again, so it stays valid and idempotent no
//	matter how often it is queried, and nothing is pinned to parser node
//	identity.
//
// Thread Safety: Immutable after construction; safe for concurrent reads.
type ScopeIndex struct {
	spans []scopeSpan
}

// NewScopeIndex builds the scope index for a parsed source file.
//
// Async function definitions are not indexed: call sites inside them have
// no enclosing scope and resolve the same as module-level calls.
func NewScopeIndex(file *ast.SourceFile) *ScopeIndex {
	idx := &ScopeIndex{}
	walkTree(file.Root(), func(node *sitter.Node) bool {
		if node.Type() != "function_definition" || isAsyncDef(node) {
			return true
		}
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return true
		}
		idx.spans = append(idx.spans, scopeSpan{
			name:  file.Text(nameNode),
			start: node.StartByte(),
			end:   node.EndByte(),
		})
		return true
	})
	return idx
}

// EnclosingFunction returns the name of the innermost function whose body
// contains the byte offset. The second return is false for module-level
// offsets.
//
// A call expression that begins exactly at a definition's start byte is
// outside that definition, so decorator calls do not resolve to the
// function they decorate.
func (s *ScopeIndex) EnclosingFunction(offset uint32) (string, bool) {
	var (
		best      scopeSpan
		bestWidth uint32
		found     bool
	)
	for _, span := range s.spans {
		if offset <= span.start || offset >= span.end {
			continue
		}
		width := span.end - span.start
		if !found || width < bestWidth {
			best = span
			bestWidth = width
			found = true
		}
	}
	if !found {
		return "", false
	}
	return best.name, true
}

// isAsyncDef reports whether a function_definition carries the async keyword.
func isAsyncDef(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// walkTree visits node and its descendants pre-order. visit returns false
// to prune the subtree.
func walkTree(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(i), visit)
	}
}
