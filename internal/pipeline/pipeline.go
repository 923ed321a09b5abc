// Package pipeline chains the front-end phases over a shared context.
// Phase N executes iff phase N-1 reported no errors; warnings never block.
package pipeline

import (
	"github.com/funvibe/tea/internal/diagnostics"
	"github.com/funvibe/tea/internal/lexer"
	"github.com/funvibe/tea/internal/modules"
	"github.com/funvibe/tea/internal/parser"
	"github.com/funvibe/tea/internal/resolver"
	"github.com/funvibe/tea/internal/source"
	"github.com/funvibe/tea/internal/token"
	"github.com/funvibe/tea/internal/typechecker"
	"github.com/funvibe/tea/internal/vm"

	"path/filepath"

	"github.com/funvibe/tea/internal/ast"
)

// Context holds everything passed between stages.
type Context struct {
	Source *source.Buffer

	Tokens   []token.Token
	Module   *ast.Module
	Captures map[int][]string
	Info     *typechecker.Info
	Loaded   []*modules.LoadedModule
	Program  *vm.Program

	Diags *diagnostics.Diagnostics
}

// NewContext prepares a context for one compilation unit.
func NewContext(id source.SourceId, path, contents string) *Context {
	return &Context{
		Source: source.NewBuffer(id, path, contents),
		Diags:  diagnostics.New(),
	}
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline is an ordered stage sequence.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes stages until one reports an error.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, processor := range p.processors {
		if ctx.Diags.HasErrors() {
			break
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}

// Compile runs the full front end: lex, parse, resolve, load imports,
// check, emit.
func Compile(path, contents string) *Context {
	ctx := NewContext(1, path, contents)
	return New(
		&LexerProcessor{},
		&ParserProcessor{},
		&ResolverProcessor{},
		&ImportProcessor{},
		&TypeCheckProcessor{},
		&CompileProcessor{},
	).Run(ctx)
}

// LexerProcessor tokenizes the source. Lexer errors are fatal for the rest
// of the pipeline.
type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *Context) *Context {
	tokens, diags := lexer.Tokenize(ctx.Source.Contents)
	ctx.Tokens = tokens
	ctx.Diags.Extend(diags)
	return ctx
}

// ParserProcessor builds the AST.
type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *Context) *Context {
	module, diags := parser.Parse(ctx.Tokens)
	ctx.Module = module
	ctx.Diags.Extend(diags)
	return ctx
}

// ResolverProcessor runs scope analysis and records lambda captures.
type ResolverProcessor struct{}

func (rp *ResolverProcessor) Process(ctx *Context) *Context {
	diags, captures := resolver.Resolve(ctx.Module)
	ctx.Captures = captures
	ctx.Diags.Extend(diags)
	return ctx
}

// ImportProcessor loads relative imports by re-running the pipeline on each
// imported file.
type ImportProcessor struct{}

func (ip *ImportProcessor) Process(ctx *Context) *Context {
	loader := modules.NewLoader(filepath.Dir(ctx.Source.Path))
	ctx.Loaded = loader.LoadImports(ctx.Module, ctx.Diags)
	return ctx
}

// TypeCheckProcessor checks the module against its imports' exports.
type TypeCheckProcessor struct{}

func (tp *TypeCheckProcessor) Process(ctx *Context) *Context {
	imports := make(map[string]*typechecker.ModuleExports, len(ctx.Loaded))
	for _, loaded := range ctx.Loaded {
		imports[loaded.Path] = loaded.Exports
	}
	info, diags := typechecker.CheckWithImports(ctx.Module, imports)
	ctx.Info = info
	ctx.Diags.Extend(diags)
	return ctx
}

// CompileProcessor lowers the checked AST to bytecode.
type CompileProcessor struct{}

func (cp *CompileProcessor) Process(ctx *Context) *Context {
	imported := make([]vm.ImportedModule, len(ctx.Loaded))
	for i, loaded := range ctx.Loaded {
		imported[i] = vm.ImportedModule{
			Alias:    loaded.Alias,
			Module:   loaded.Module,
			Info:     loaded.Info,
			Captures: loaded.Captures,
		}
	}
	program, err := vm.Compile(ctx.Module, ctx.Info, ctx.Captures, imported)
	if err != nil {
		// Emit errors are internal bugs, not user errors.
		ctx.Diags.Push("internal: " + err.Error())
		return ctx
	}
	ctx.Program = program
	return ctx
}
