// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "testing"

func TestGetPythonRegistry(t *testing.T) {
	ResetPythonRegistry()
	t.Cleanup(ResetPythonRegistry)

	reg, err := GetPythonRegistry()
	if err != nil {
		t.Fatalf("GetPythonRegistry failed: %v", err)
	}

	t.Run("builtins present", func(t *testing.T) {
		for _, name := range []string{"print", "len", "range", "isinstance", "ValueError"} {
			if !reg.IsBuiltin(name) {
				t.Errorf("expected %q to be a builtin", name)
			}
		}
	})

	t.Run("user names absent", func(t *testing.T) {
		for _, name := range []string{"helper", "process_data", "Print"} {
			if reg.IsBuiltin(name) {
				t.Errorf("did not expect %q to be a builtin", name)
			}
		}
	})

	t.Run("stdlib modules", func(t *testing.T) {
		if !reg.IsStdlibModule("os") {
			t.Error("expected os to be stdlib")
		}
		if !reg.IsStdlibModule("os.path") {
			t.Error("expected dotted os.path to match on first segment")
		}
		if reg.IsStdlibModule("mypackage") {
			t.Error("did not expect mypackage to be stdlib")
		}
	})

	t.Run("cached instance", func(t *testing.T) {
		again, err := GetPythonRegistry()
		if err != nil {
			t.Fatalf("second GetPythonRegistry failed: %v", err)
		}
		if again != reg {
			t.Error("expected cached registry instance")
		}
	})
}

func TestLoadPythonRegistry(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		reg, err := LoadPythonRegistry([]byte("builtins: [print]\nstdlib_modules: [os]\n"))
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !reg.IsBuiltin("print") || !reg.IsStdlibModule("os") {
			t.Error("loaded sets incomplete")
		}
	})

	t.Run("empty data", func(t *testing.T) {
		if _, err := LoadPythonRegistry(nil); err == nil {
			t.Error("expected error for empty data")
		}
	})

	t.Run("missing builtins", func(t *testing.T) {
		if _, err := LoadPythonRegistry([]byte("stdlib_modules: [os]\n")); err == nil {
			t.Error("expected error for missing builtins")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := LoadPythonRegistry([]byte("builtins: [unclosed")); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}
