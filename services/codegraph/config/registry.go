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

import (
	"fmt"
	"log/slog"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed python_registry.yaml
var defaultRegistryYAML []byte

// MaxRegistryYAMLSize bounds the size of a registry file accepted by Load.
const MaxRegistryYAMLSize = 1 * 1024 * 1024

// PythonRegistry holds the name sets used to filter noise out of extracted
// call and import facts.
//
// Description:
//
//	Builtins lists callable names that belong to the Python builtin namespace
//	(functions, types, and a handful of decorator helpers). StdlibModules
//	lists top-level standard library module names. Both sets are data, not
//	code, so deployments can swap in their own registry without a rebuild.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type PythonRegistry struct {
	Builtins      []string `yaml:"builtins"`
	StdlibModules []string `yaml:"stdlib_modules"`

	builtinSet map[string]struct{}
	stdlibSet  map[string]struct{}
}

// IsBuiltin reports whether name is a Python builtin callable.
func (r *PythonRegistry) IsBuiltin(name string) bool {
	_, ok := r.builtinSet[name]
	return ok
}

// IsStdlibModule reports whether module is a top-level standard library module.
// Dotted module paths are matched on their first segment.
func (r *PythonRegistry) IsStdlibModule(module string) bool {
	for i := 0; i < len(module); i++ {
		if module[i] == '.' {
			module = module[:i]
			break
		}
	}
	_, ok := r.stdlibSet[module]
	return ok
}

var (
	registryMu      sync.RWMutex
	registryOnce    sync.Once
	cachedRegistry  *PythonRegistry
	registryLoadErr error
)

// GetPythonRegistry returns the cached default registry, loading the embedded
// YAML on first call.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetPythonRegistry() (*PythonRegistry, error) {
	registryMu.RLock()
	if cachedRegistry != nil || registryLoadErr != nil {
		reg, err := cachedRegistry, registryLoadErr
		registryMu.RUnlock()
		return reg, err
	}
	registryMu.RUnlock()

	registryMu.Lock()
	defer registryMu.Unlock()

	if cachedRegistry != nil || registryLoadErr != nil {
		return cachedRegistry, registryLoadErr
	}

	registryOnce.Do(func() {
		cachedRegistry, registryLoadErr = LoadPythonRegistry(defaultRegistryYAML)
	})

	return cachedRegistry, registryLoadErr
}

// ResetPythonRegistry resets the cached registry for testing.
func ResetPythonRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	cachedRegistry = nil
	registryLoadErr = nil
	registryOnce = sync.Once{}
}

// LoadPythonRegistry parses and validates a PythonRegistry from YAML bytes.
//
// Inputs:
//
//	data - Raw YAML bytes. Must be non-empty and under MaxRegistryYAMLSize.
//
// Outputs:
//
//	*PythonRegistry - The validated registry with lookup sets built.
//	error - Non-nil if parsing or validation fails.
func LoadPythonRegistry(data []byte) (*PythonRegistry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadPythonRegistry: empty YAML data")
	}
	if len(data) > MaxRegistryYAMLSize {
		return nil, fmt.Errorf("LoadPythonRegistry: YAML data exceeds maximum size (%d > %d)", len(data), MaxRegistryYAMLSize)
	}

	var reg PythonRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("LoadPythonRegistry: parsing YAML: %w", err)
	}

	if len(reg.Builtins) == 0 {
		return nil, fmt.Errorf("LoadPythonRegistry: builtins list must not be empty")
	}
	if len(reg.StdlibModules) == 0 {
		return nil, fmt.Errorf("LoadPythonRegistry: stdlib_modules list must not be empty")
	}

	reg.builtinSet = make(map[string]struct{}, len(reg.Builtins))
	for i, name := range reg.Builtins {
		if name == "" {
			return nil, fmt.Errorf("LoadPythonRegistry: builtins[%d] is empty", i)
		}
		reg.builtinSet[name] = struct{}{}
	}
	reg.stdlibSet = make(map[string]struct{}, len(reg.StdlibModules))
	for i, name := range reg.StdlibModules {
		if name == "" {
			return nil, fmt.Errorf("LoadPythonRegistry: stdlib_modules[%d] is empty", i)
		}
		reg.stdlibSet[name] = struct{}{}
	}

	slog.Info("python registry loaded",
		slog.Int("builtins", len(reg.Builtins)),
		slog.Int("stdlib_modules", len(reg.StdlibModules)))

	return &reg, nil
}
