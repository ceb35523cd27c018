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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/AleutianAI/codegraph/services/codegraph/ast"
	"github.com/AleutianAI/codegraph/services/codegraph/config"
)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithExcludeBuiltins controls whether calls to Python builtins are dropped.
// Enabled by default.
func WithExcludeBuiltins(exclude bool) BuilderOption {
	return func(b *Builder) {
		b.excludeBuiltins = exclude
	}
}

// WithExcludeStdlib controls whether standard-library from-imports, and
// calls to names imported from the standard library, are dropped.
// Disabled by default.
func WithExcludeStdlib(exclude bool) BuilderOption {
	return func(b *Builder) {
		b.excludeStdlib = exclude
	}
}

// WithQualifiedNames switches function node identity from the bare name to
// "<file>::<name>". In the default flat mode, same-named functions across
// files collapse into a single node.
func WithQualifiedNames(qualified bool) BuilderOption {
	return func(b *Builder) {
		b.qualifiedNames = qualified
	}
}

// WithRegistry replaces the default builtin/stdlib registry.
func WithRegistry(reg *config.PythonRegistry) BuilderOption {
	return func(b *Builder) {
		b.registry = reg
	}
}

// WithMaxFileSize sets the per-file size limit passed to the parser.
func WithMaxFileSize(bytes int64) BuilderOption {
	return func(b *Builder) {
		if bytes > 0 {
			b.maxFileSize = bytes
		}
	}
}

// Builder extracts a code graph from a directory of Python sources.
//
// Description:
//
//	Build walks the project root recursively, parses every .py file, and
//	assembles containment, import, and call edges into one Graph. A file
//	that cannot be read or parsed is logged, recorded in the result, and
//	skipped; extraction continues with the remaining files. Only a missing
//	or non-directory root aborts the build.
//
//	The accumulating graph is touched from a single goroutine. Parsing is
//	deliberately serial as well: graph assembly is map insertion and the
//	walk is dominated by tree-sitter, which finishes in well under a second
//	per file.
//
// Thread Safety:
//
//	A Builder is safe for concurrent Build calls; each call builds an
//	independent graph and the Builder itself is immutable after New.
type Builder struct {
	root            string
	excludeBuiltins bool
	excludeStdlib   bool
	qualifiedNames  bool
	maxFileSize     int64
	registry        *config.PythonRegistry
}

// NewBuilder creates a Builder for the given project root.
//
// Example:
//
//	b := graph.NewBuilder("/path/to/project", graph.WithExcludeStdlib(true))
//	result, err := b.Build(ctx)
func NewBuilder(root string, opts ...BuilderOption) *Builder {
	b := &Builder{
		root:            root,
		excludeBuiltins: true,
		maxFileSize:     ast.DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildStats summarizes one build.
type BuildStats struct {
	FilesProcessed int `json:"files_processed"`
	FilesSkipped   int `json:"files_skipped"`
	Functions      int `json:"functions"`
	Imports        int `json:"imports"`
	Calls          int `json:"calls"`
}

// BuildResult is the outcome of a build. The caller owns the Graph.
type BuildResult struct {
	Graph      *Graph       `json:"-"`
	FileErrors []*FileError `json:"file_errors,omitempty"`
	Stats      BuildStats   `json:"stats"`
}

// Build extracts the code graph for the builder's root.
//
// Outputs:
//   - *BuildResult: The graph plus per-file errors and counters. Never nil
//     on success; a project with no .py files yields an empty graph.
//   - error: ErrInvalidRoot if the root is missing or not a directory, a
//     context error on cancellation, or a walk failure.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx, b.root)
	defer span.End()

	start := time.Now()

	info, err := os.Stat(b.root)
	if err != nil {
		recordBuildMetrics(ctx, time.Since(start), BuildStats{}, false)
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, b.root, err)
	}
	if !info.IsDir() {
		recordBuildMetrics(ctx, time.Since(start), BuildStats{}, false)
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, b.root)
	}

	registry := b.registry
	if registry == nil {
		registry, err = config.GetPythonRegistry()
		if err != nil {
			recordBuildMetrics(ctx, time.Since(start), BuildStats{}, false)
			return nil, fmt.Errorf("loading python registry: %w", err)
		}
	}

	result := &BuildResult{Graph: NewGraph()}

	walkErr := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directory entries are skipped like unreadable files.
			result.recordFileError(b.relPath(path), err)
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

		relPath := b.relPath(path)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			slog.Warn("skipping unreadable file",
				slog.String("file", relPath),
				slog.String("error", readErr.Error()))
			result.recordFileError(relPath, readErr)
			return nil
		}

		file, parseErr := ast.ParsePython(ctx, content, relPath, ast.WithMaxFileSize(b.maxFileSize))
		if parseErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("skipping unparsable file",
				slog.String("file", relPath),
				slog.String("error", parseErr.Error()))
			result.recordFileError(relPath, parseErr)
			return nil
		}

		b.extractFile(file, registry, result)
		file.Close()
		result.Stats.FilesProcessed++
		return nil
	})
	if walkErr != nil {
		recordBuildMetrics(ctx, time.Since(start), result.Stats, false)
		return nil, fmt.Errorf("walking %s: %w", b.root, walkErr)
	}

	setBuildSpanResult(span, result.Graph, result.Stats)
	recordBuildMetrics(ctx, time.Since(start), result.Stats, true)

	slog.Info("graph build complete",
		slog.String("root", b.root),
		slog.Int("nodes", result.Graph.NodeCount()),
		slog.Int("edges", result.Graph.EdgeCount()),
		slog.Int("files_processed", result.Stats.FilesProcessed),
		slog.Int("files_skipped", result.Stats.FilesSkipped))

	return result, nil
}

func (r *BuildResult) recordFileError(path string, err error) {
	r.FileErrors = append(r.FileErrors, &FileError{Path: path, Err: err, Message: err.Error()})
	r.Stats.FilesSkipped++
}

// relPath renders path relative to the root with forward slashes.
func (b *Builder) relPath(path string) string {
	rel, err := filepath.Rel(b.root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// importFact is one from-import collected from a file.
type importFact struct {
	module string
	names  []string
}

// callFact is one bare-name call site collected from a file.
type callFact struct {
	callee string
	offset uint32
}

// extractFile collects declaration and call facts from one parsed file and
// folds them into the accumulating graph.
//
// Facts are applied in collection-pass order: containment first, then
// imports, then calls. Applying imports before calls lets the stdlib
// filter see names imported anywhere in the file, including imports that
// appear textually after their use.
func (b *Builder) extractFile(file *ast.SourceFile, registry *config.PythonRegistry, result *BuildResult) {
	scopes := NewScopeIndex(file)

	var (
		functions []string
		imports   []importFact
		calls     []callFact
	)

	walkTree(file.Root(), func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_definition":
			if isAsyncDef(node) {
				return true
			}
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				functions = append(functions, file.Text(nameNode))
			}

		case "import_from_statement":
			if fact, ok := b.collectImport(file, node); ok {
				imports = append(imports, fact)
			}

		case "call":
			fn := node.ChildByFieldName("function")
			if fn != nil && fn.Type() == "identifier" {
				calls = append(calls, callFact{callee: file.Text(fn), offset: node.StartByte()})
			}
		}
		return true
	})

	g := result.Graph

	// A file node's identity is its base name, so an import target like
	// "a.py" merges with the real file even when it lives in a
	// subdirectory. Every parsed file gets a node, functions or not.
	fileID := path.Base(file.FilePath)
	g.EnsureNode(fileID, NodeTypeFile)

	// Containment facts. One function node per definition.
	definedHere := make(map[string]struct{}, len(functions))
	for _, name := range functions {
		definedHere[name] = struct{}{}
		funcID := b.functionID(fileID, name)
		g.EnsureNode(funcID, NodeTypeFunction)
		g.EnsureEdge(fileID, funcID, RelationContains)
		result.Stats.Functions++
	}

	// Import facts. Target is the module rendered as a sibling .py file;
	// plain "import X" statements are not collected.
	stdlibNames := make(map[string]struct{})
	for _, fact := range imports {
		if b.excludeStdlib && registry.IsStdlibModule(fact.module) {
			for _, name := range fact.names {
				stdlibNames[name] = struct{}{}
			}
			continue
		}
		target := fact.module + ".py"
		g.EnsureNode(target, NodeTypeFile)
		g.EnsureEdge(fileID, target, RelationImports)
		result.Stats.Imports++
	}

	// Call facts. The callee node is always recorded; a module-level call
	// has no enclosing function, so only the edge is dropped.
	for _, fact := range calls {
		if b.excludeBuiltins && registry.IsBuiltin(fact.callee) {
			continue
		}
		if b.excludeStdlib {
			if _, ok := stdlibNames[fact.callee]; ok {
				continue
			}
		}
		calleeID := fact.callee
		if b.qualifiedNames {
			if _, local := definedHere[fact.callee]; local {
				calleeID = b.functionID(fileID, fact.callee)
			}
		}
		g.EnsureNode(calleeID, NodeTypeFunction)
		caller, ok := scopes.EnclosingFunction(fact.offset)
		if !ok {
			continue
		}
		g.EnsureEdge(b.functionID(fileID, caller), calleeID, RelationCalls)
		result.Stats.Calls++
	}
}

// collectImport extracts the module and imported names from an
// import_from_statement. Relative imports with no module name, like
// "from . import x", are skipped.
func (b *Builder) collectImport(file *ast.SourceFile, node *sitter.Node) (importFact, bool) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return importFact{}, false
	}

	module := file.Text(moduleNode)
	if moduleNode.Type() == "relative_import" {
		// Strip the leading dots; "from .mod import x" resolves as "mod".
		module = strings.TrimLeft(module, ".")
	}
	if module == "" {
		return importFact{}, false
	}

	fact := importFact{module: module}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			fact.names = append(fact.names, file.Text(child))
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				fact.names = append(fact.names, file.Text(alias))
			}
		}
	}
	return fact, true
}

// functionID renders a function's node identity for the configured mode.
func (b *Builder) functionID(fileID, name string) string {
	if b.qualifiedNames {
		return fileID + "::" + name
	}
	return name
}
