// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"
)

func TestBuildOptionsMapping(t *testing.T) {
	t.Run("defaults exclude builtins and keep stdlib", func(t *testing.T) {
		includeBuiltins = false
		excludeStdlib = false
		qualifiedNames = false

		opts := buildOptions()
		if opts.IncludeBuiltins {
			t.Error("builtins should be excluded by default")
		}
		if opts.ExcludeStdlib {
			t.Error("stdlib should be kept by default")
		}
		if opts.QualifiedNames {
			t.Error("flat names should be the default")
		}
	})

	t.Run("flags flow through", func(t *testing.T) {
		includeBuiltins = true
		excludeStdlib = true
		qualifiedNames = true
		defer func() {
			includeBuiltins = false
			excludeStdlib = false
			qualifiedNames = false
		}()

		opts := buildOptions()
		if !opts.IncludeBuiltins || !opts.ExcludeStdlib || !opts.QualifiedNames {
			t.Errorf("unexpected options: %+v", opts)
		}
	})
}

func TestCommandWiring(t *testing.T) {
	commands := map[string]func() interface{ Name() string }{
		"build":     func() interface{ Name() string } { return newBuildCmd() },
		"store":     func() interface{ Name() string } { return newStoreCmd() },
		"list":      func() interface{ Name() string } { return newListCmd() },
		"delete":    func() interface{ Name() string } { return newDeleteCmd() },
		"search":    func() interface{ Name() string } { return newSearchCmd() },
		"visualize": func() interface{ Name() string } { return newVisualizeCmd() },
		"serve":     func() interface{ Name() string } { return newServeCmd() },
		"mcp":       func() interface{ Name() string } { return newMCPCmd() },
	}
	for want, mk := range commands {
		if got := mk().Name(); got != want {
			t.Errorf("command name = %q, want %q", got, want)
		}
	}
}

func TestBuildCmdFlags(t *testing.T) {
	cmd := newBuildCmd()
	for _, name := range []string{"include-builtins", "exclude-stdlib", "qualified", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("build command missing flag %q", name)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	if defaultDBPath() == "" {
		t.Error("default db path must not be empty")
	}
}
