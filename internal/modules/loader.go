// Package modules loads relative file imports by re-running the front-end
// pipeline on the imported source and exposing its public surface.
package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/lexer"
	"github.com/funvibe/tea/internal/parser"
	"github.com/funvibe/tea/internal/resolver"
	"github.com/funvibe/tea/internal/typechecker"
)

// LoadedModule is one relative import, fully checked.
type LoadedModule struct {
	Alias    string
	Path     string
	Module   *ast.Module
	Info     *typechecker.Info
	Captures map[int][]string
	Exports  *typechecker.ModuleExports
}

// Loader resolves relative imports against a base directory, caching by
// cleaned path and guarding against cycles.
type Loader struct {
	BaseDir string

	cache   map[string]*LoadedModule
	loading map[string]bool
}

func NewLoader(baseDir string) *Loader {
	return &Loader{
		BaseDir: baseDir,
		cache:   make(map[string]*LoadedModule),
		loading: make(map[string]bool),
	}
}

// IsRelative reports whether a use-path refers to a file rather than the
// stdlib registry.
func IsRelative(path string) bool {
	return !strings.HasPrefix(path, "std.") && !strings.HasPrefix(path, "support.")
}

// LoadImports loads every relative import of a parsed module. Diagnostics
// from imported files are appended to the shared sink.
func (l *Loader) LoadImports(module *ast.Module, diags *diagnostics.Diagnostics) []*LoadedModule {
	var loaded []*LoadedModule
	for _, stmt := range module.Statements {
		use, ok := stmt.(*ast.UseStatement)
		if !ok || !IsRelative(use.ModulePath) {
			continue
		}
		imported, err := l.load(use.ModulePath, use.Alias, diags)
		if err != nil {
			diags.PushError(err.Error(), use.ModuleSpan)
			continue
		}
		if imported != nil {
			loaded = append(loaded, imported)
		}
	}
	return loaded
}

func (l *Loader) load(modulePath, alias string, diags *diagnostics.Diagnostics) (*LoadedModule, error) {
	filePath := modulePath
	if filepath.Ext(filePath) == "" {
		filePath += ".tea"
	}
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(l.BaseDir, filePath)
	}
	filePath = filepath.Clean(filePath)

	if cached, ok := l.cache[filePath]; ok {
		clone := *cached
		clone.Alias = alias
		return &clone, nil
	}
	if l.loading[filePath] {
		return nil, fmt.Errorf("import cycle through '%s'", modulePath)
	}
	l.loading[filePath] = true
	defer delete(l.loading, filePath)

	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot load module '%s': %v", modulePath, err)
	}

	tokens, lexDiags := lexer.Tokenize(string(source))
	diags.Extend(lexDiags)
	if lexDiags.HasErrors() {
		return nil, nil
	}

	parsed, parseDiags := parser.Parse(tokens)
	diags.Extend(parseDiags)
	if parseDiags.HasErrors() {
		return nil, nil
	}

	resolveDiags, captures := resolver.Resolve(parsed)
	diags.Extend(resolveDiags)
	if resolveDiags.HasErrors() {
		return nil, nil
	}

	checker := typechecker.New()
	info, checkDiags := checker.CheckModule(parsed)
	diags.Extend(checkDiags)
	if checkDiags.HasErrors() {
		return nil, nil
	}

	exports := checker.Exports()
	exports.Path = modulePath

	loaded := &LoadedModule{
		Alias:    alias,
		Path:     modulePath,
		Module:   parsed,
		Info:     info,
		Captures: captures,
		Exports:  exports,
	}
	l.cache[filePath] = loaded
	return loaded, nil
}
