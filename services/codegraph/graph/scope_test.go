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
	"context"
	"strings"
	"testing"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
)

func parseSource(t *testing.T, src string) *ast.SourceFile {
	t.Helper()
	file, err := ast.ParsePython(context.Background(), []byte(src), "t.py")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(file.Close)
	return file
}

func TestScopeIndex(t *testing.T) {
	src := "def outer():\n" +
		"    x = 1\n" +
		"    def inner():\n" +
		"        y = 2\n" +
		"    return inner\n" +
		"\n" +
		"z = 3\n"
	file := parseSource(t, src)
	idx := NewScopeIndex(file)

	offsetOf := func(marker string) uint32 {
		i := strings.Index(src, marker)
		if i < 0 {
			t.Fatalf("marker %q not in source", marker)
		}
		return uint32(i)
	}

	t.Run("body of outer", func(t *testing.T) {
		name, ok := idx.EnclosingFunction(offsetOf("x = 1"))
		if !ok || name != "outer" {
			t.Errorf("got %q/%v, want outer", name, ok)
		}
	})

	t.Run("innermost wins", func(t *testing.T) {
		name, ok := idx.EnclosingFunction(offsetOf("y = 2"))
		if !ok || name != "inner" {
			t.Errorf("got %q/%v, want inner", name, ok)
		}
	})

	t.Run("module level", func(t *testing.T) {
		if name, ok := idx.EnclosingFunction(offsetOf("z = 3")); ok {
			t.Errorf("expected no scope, got %q", name)
		}
	})

	t.Run("idempotent lookups", func(t *testing.T) {
		off := offsetOf("y = 2")
		first, _ := idx.EnclosingFunction(off)
		second, _ := idx.EnclosingFunction(off)
		if first != second {
			t.Errorf("lookups disagree: %q vs %q", first, second)
		}
	})
}

func TestScopeIndexAsyncSkipped(t *testing.T) {
	file := parseSource(t, "async def handler():\n    await work()\n")
	idx := NewScopeIndex(file)
	if len(idx.spans) != 0 {
		t.Errorf("async defs should not be indexed, got %d spans", len(idx.spans))
	}
}
