// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docstring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
)

func parseFile(t *testing.T, src string) *ast.SourceFile {
	t.Helper()
	file, err := ast.ParsePython(context.Background(), []byte(src), "t.py")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	t.Cleanup(file.Close)
	return file
}

func TestExtractFromSource(t *testing.T) {
	t.Run("triple quoted", func(t *testing.T) {
		idx := ExtractFromSource(parseFile(t,
			"def greet(name):\n    \"\"\"Say hello.\"\"\"\n    return name\n"))
		doc, ok := idx.Lookup("greet")
		if !ok || doc != "Say hello." {
			t.Errorf("Lookup(greet) = %q/%v", doc, ok)
		}
	})

	t.Run("async def included", func(t *testing.T) {
		idx := ExtractFromSource(parseFile(t,
			"async def fetch():\n    \"\"\"Fetch data.\"\"\"\n    pass\n"))
		if _, ok := idx.Lookup("fetch"); !ok {
			t.Error("async function docstring missing")
		}
	})

	t.Run("no docstring", func(t *testing.T) {
		idx := ExtractFromSource(parseFile(t, "def bare():\n    return 1\n"))
		if idx.Len() != 0 {
			t.Errorf("Len = %d, want 0", idx.Len())
		}
	})

	t.Run("nested function", func(t *testing.T) {
		idx := ExtractFromSource(parseFile(t,
			"def outer():\n    def inner():\n        \"\"\"Inner doc.\"\"\"\n        pass\n    return inner\n"))
		if doc, _ := idx.Lookup("inner"); doc != "Inner doc." {
			t.Errorf("Lookup(inner) = %q", doc)
		}
	})
}

func TestExtractFromDirectory(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.py":      "def fa():\n    \"\"\"Doc A.\"\"\"\n    pass\n",
		"sub/b.py":  "def fb():\n    '''Doc B.'''\n    pass\n",
		"broken.py": "def broken(:\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := ExtractFromDirectory(context.Background(), root)
	if err != nil {
		t.Fatalf("ExtractFromDirectory failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2 (broken file skipped)", idx.Len())
	}
	if doc, _ := idx.Lookup("fb"); doc != "Doc B." {
		t.Errorf("Lookup(fb) = %q", doc)
	}
}

func TestParse(t *testing.T) {
	t.Run("full docstring", func(t *testing.T) {
		raw := "Process the records.\n" +
			"\n" +
			"Args:\n" +
			"    records: The input records.\n" +
			"    limit (int): Maximum to process.\n" +
			"\n" +
			"Returns:\n" +
			"    The processed count.\n" +
			"\n" +
			"Raises:\n" +
			"    ValueError: On bad input.\n" +
			"\n" +
			"Note:\n" +
			"    Not thread safe.\n" +
			"\n" +
			"Example:\n" +
			"    process(rs)\n"

		s := Parse(raw)
		if s.Summary != "Process the records." {
			t.Errorf("Summary = %q", s.Summary)
		}
		if s.Parameters["records"] != "The input records." {
			t.Errorf("Parameters[records] = %q", s.Parameters["records"])
		}
		if s.Parameters["limit"] == "" {
			t.Error("typed parameter missing")
		}
		if s.Returns != "The processed count." {
			t.Errorf("Returns = %q", s.Returns)
		}
		if s.Raises == "" || s.Note != "Not thread safe." || s.Example != "process(rs)" {
			t.Errorf("sections = %+v", s)
		}
	})

	t.Run("summary only", func(t *testing.T) {
		s := Parse("Just a summary line.")
		if s.Summary != "Just a summary line." {
			t.Errorf("Summary = %q", s.Summary)
		}
		if len(s.Parameters) != 0 || s.Returns != "" {
			t.Errorf("unexpected sections: %+v", s)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if !Parse("  \n ").IsZero() {
			t.Error("expected zero sections")
		}
	})

	t.Run("continuation lines", func(t *testing.T) {
		s := Parse("Sum.\n\nArgs:\n    x: First part\n        and second part.\n")
		if got := s.Parameters["x"]; got != "First part and second part." {
			t.Errorf("Parameters[x] = %q", got)
		}
	})
}
