package vm

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/typechecker"
	"github.com/funvibe/tea/internal/value"
)

// ImportedModule is one relative import handed to the compiler: its alias,
// parsed body, checker annotations, and lambda captures.
type ImportedModule struct {
	Alias    string
	Module   *ast.Module
	Info     *typechecker.Info
	Captures map[int][]string
}

// Compiler lowers a checked module (plus its imports) into a Program.
type Compiler struct {
	info     *typechecker.Info
	captures map[int][]string

	functionDecls map[string]*ast.FunctionStatement

	functions   []*Function
	globals     []string
	globalIndex map[string]int
	structs     []*value.StructTemplate
	structIndex map[string]int
	tests       []TestCase

	// globalPrefix qualifies global names while an imported module is being
	// compiled ("alias.").
	globalPrefix string
}

// funcCompiler tracks one function body (or the main chunk) being emitted.
type funcCompiler struct {
	compiler  *Compiler
	chunk     *Chunk
	enclosing *funcCompiler

	scopes   []map[string]int
	nextSlot int
	maxSlots int

	// captures holds the lambda's captured names in capture order; nil for
	// named functions and main.
	captures []string

	loops []*loopContext
}

type loopContext struct {
	breakJumps    []int
	continueJumps []int
}

// Compile produces an immutable Program from the checked module.
func Compile(module *ast.Module, info *typechecker.Info, captures map[int][]string, imports []ImportedModule) (*Program, error) {
	c := &Compiler{
		info:          info,
		captures:      captures,
		functionDecls: make(map[string]*ast.FunctionStatement),
		globalIndex:   make(map[string]int),
		structIndex:   make(map[string]int),
	}

	for _, decl := range info.Structs {
		c.addStructTemplate(decl)
	}
	for _, imported := range imports {
		for _, decl := range imported.Info.Structs {
			c.addStructTemplate(decl)
		}
	}

	main := &funcCompiler{compiler: c, chunk: NewChunk()}

	// Imported modules first: their functions and globals get qualified
	// names, their top-level bindings run before the entry module's.
	for _, imported := range imports {
		savedInfo, savedCaptures, savedDecls := c.info, c.captures, c.functionDecls
		c.info = imported.Info
		c.captures = imported.Captures
		c.functionDecls = make(map[string]*ast.FunctionStatement)
		c.globalPrefix = imported.Alias + "."

		c.declareModuleGlobals(imported.Module)
		if err := c.compileModuleFunctions(imported.Module, main); err != nil {
			return nil, err
		}
		if err := c.compileTopLevelVars(imported.Module, main); err != nil {
			return nil, err
		}

		c.info, c.captures, c.functionDecls = savedInfo, savedCaptures, savedDecls
		c.globalPrefix = ""
	}

	c.declareModuleGlobals(module)
	if err := c.compileModuleFunctions(module, main); err != nil {
		return nil, err
	}

	for _, stmt := range module.Statements {
		switch stmt.(type) {
		case *ast.FunctionStatement, *ast.StructStatement, *ast.ErrorStatement,
			*ast.EnumStatement, *ast.UnionStatement, *ast.UseStatement:
			// Declarations carry no runtime effect beyond the prelude.
		default:
			if err := main.compileStatement(stmt, false); err != nil {
				return nil, err
			}
		}
	}
	main.chunk.Emit(Instruction{Op: OpConstant, A: main.chunk.AddConstant(value.Void())})
	main.chunk.Emit(Instruction{Op: OpReturn})

	return &Program{
		Chunk:      main.chunk,
		MainLocals: main.maxSlots,
		Functions:  c.functions,
		Globals:    c.globals,
		Structs:    c.structs,
		Tests:      c.tests,
	}, nil
}

func (c *Compiler) addStructTemplate(decl *typechecker.StructDecl) {
	if _, ok := c.structIndex[decl.Name]; ok {
		return
	}
	c.structIndex[decl.Name] = len(c.structs)
	c.structs = append(c.structs, &value.StructTemplate{
		Name:       decl.Name,
		FieldNames: decl.FieldNames,
	})
}

// declareModuleGlobals assigns global slots in declaration order.
func (c *Compiler) declareModuleGlobals(module *ast.Module) {
	for _, stmt := range module.Statements {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			c.ensureGlobal(c.globalPrefix + s.Name)
		case *ast.VarStatement:
			for _, b := range s.Bindings {
				c.ensureGlobal(c.globalPrefix + b.Name)
			}
		}
	}
}

func (c *Compiler) ensureGlobal(name string) int {
	if index, ok := c.globalIndex[name]; ok {
		return index
	}
	index := len(c.globals)
	c.globalIndex[name] = index
	c.globals = append(c.globals, name)
	return index
}

// compileModuleFunctions compiles every function and test of a module and
// emits the prelude that installs function values into their globals.
func (c *Compiler) compileModuleFunctions(module *ast.Module, main *funcCompiler) error {
	for _, stmt := range module.Statements {
		if s, ok := stmt.(*ast.FunctionStatement); ok {
			c.functionDecls[s.Name] = s
		}
	}
	for _, stmt := range module.Statements {
		switch s := stmt.(type) {
		case *ast.FunctionStatement:
			index, err := c.compileFunction(s)
			if err != nil {
				return err
			}
			global := c.ensureGlobal(c.globalPrefix + s.Name)
			constIndex := main.chunk.AddConstant(value.Function(index))
			main.chunk.Emit(Instruction{Op: OpConstant, A: constIndex})
			main.chunk.Emit(Instruction{Op: OpSetGlobal, A: global})
			main.chunk.Emit(Instruction{Op: OpPop})
		case *ast.TestStatement:
			if c.globalPrefix != "" {
				continue // imported tests are not run by the importer
			}
			index, err := c.compileTest(s)
			if err != nil {
				return err
			}
			c.tests = append(c.tests, TestCase{
				Name:          s.Name,
				NameSpan:      s.NameSpan,
				FunctionIndex: index,
			})
		}
	}
	return nil
}

func (c *Compiler) compileTopLevelVars(module *ast.Module, main *funcCompiler) error {
	for _, stmt := range module.Statements {
		if s, ok := stmt.(*ast.VarStatement); ok {
			if err := main.compileStatement(s, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Compiler) compileFunction(stmt *ast.FunctionStatement) (int, error) {
	fc := &funcCompiler{compiler: c, chunk: NewChunk()}
	fc.pushScope()
	for _, param := range stmt.Parameters {
		fc.declareLocal(param.Name)
	}
	if err := fc.compileBody(&stmt.Body); err != nil {
		return 0, err
	}
	fc.popScope()

	index := len(c.functions)
	c.functions = append(c.functions, &Function{
		Name:       stmt.Name,
		Arity:      len(stmt.Parameters),
		LocalCount: fc.maxSlots,
		Chunk:      fc.chunk,
	})
	return index, nil
}

func (c *Compiler) compileTest(stmt *ast.TestStatement) (int, error) {
	fc := &funcCompiler{compiler: c, chunk: NewChunk()}
	fc.pushScope()
	if err := fc.compileBody(&stmt.Body); err != nil {
		return 0, err
	}
	fc.popScope()

	index := len(c.functions)
	c.functions = append(c.functions, &Function{
		Name:       "test:" + stmt.Name,
		Arity:      0,
		LocalCount: fc.maxSlots,
		Chunk:      fc.chunk,
	})
	return index, nil
}

// compileBody compiles a function body with return synthesis: a trailing
// expression statement becomes the return value, otherwise Void.
func (fc *funcCompiler) compileBody(body *ast.Block) error {
	statements := body.Statements
	for i, stmt := range statements {
		last := i == len(statements)-1
		if last {
			if exprStmt, ok := stmt.(*ast.ExpressionStatement); ok {
				if err := fc.compileExpression(exprStmt.Expression); err != nil {
					return err
				}
				fc.chunk.Emit(Instruction{Op: OpReturn})
				return nil
			}
			if _, ok := stmt.(*ast.ReturnStatement); ok {
				return fc.compileStatement(stmt, false)
			}
		}
		if err := fc.compileStatement(stmt, false); err != nil {
			return err
		}
	}
	fc.emitConstant(value.Void())
	fc.chunk.Emit(Instruction{Op: OpReturn})
	return nil
}

// --- scope and slot management ---

func (fc *funcCompiler) pushScope() {
	fc.scopes = append(fc.scopes, make(map[string]int))
}

// popScope frees the block's slots for reuse by the next block.
func (fc *funcCompiler) popScope() {
	scope := fc.scopes[len(fc.scopes)-1]
	fc.nextSlot -= len(scope)
	fc.scopes = fc.scopes[:len(fc.scopes)-1]
}

func (fc *funcCompiler) declareLocal(name string) int {
	slot := fc.nextSlot
	fc.nextSlot++
	if fc.nextSlot > fc.maxSlots {
		fc.maxSlots = fc.nextSlot
	}
	fc.scopes[len(fc.scopes)-1][name] = slot
	return slot
}

// declareTemp allocates an anonymous slot (match scrutinees, loop state).
func (fc *funcCompiler) declareTemp() int {
	return fc.declareLocal(fmt.Sprintf("$tmp%d", fc.nextSlot))
}

func (fc *funcCompiler) resolveLocal(name string) (int, bool) {
	for i := len(fc.scopes) - 1; i >= 0; i-- {
		if slot, ok := fc.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (fc *funcCompiler) resolveCapture(name string) (int, bool) {
	for i, captured := range fc.captures {
		if captured == name {
			return i, true
		}
	}
	return 0, false
}

// emitName loads a name: local slot, capture, then global.
func (fc *funcCompiler) emitName(name string, span ast.SourceSpan) error {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.chunk.Emit(Instruction{Op: OpGetLocal, A: slot})
		return nil
	}
	if index, ok := fc.resolveCapture(name); ok {
		fc.chunk.Emit(Instruction{Op: OpGetCapture, A: index})
		return nil
	}
	if index, ok := fc.compiler.globalIndex[fc.compiler.globalPrefix+name]; ok {
		fc.chunk.Emit(Instruction{Op: OpGetGlobal, A: index})
		return nil
	}
	if index, ok := fc.compiler.globalIndex[name]; ok {
		fc.chunk.Emit(Instruction{Op: OpGetGlobal, A: index})
		return nil
	}
	return fmt.Errorf("compiler: unresolved name '%s' at %d:%d", name, span.Line, span.Column)
}

// emitStore stores the top of stack into a name without consuming it.
func (fc *funcCompiler) emitStore(name string, span ast.SourceSpan) error {
	if slot, ok := fc.resolveLocal(name); ok {
		fc.chunk.Emit(Instruction{Op: OpSetLocal, A: slot})
		return nil
	}
	if index, ok := fc.compiler.globalIndex[fc.compiler.globalPrefix+name]; ok {
		fc.chunk.Emit(Instruction{Op: OpSetGlobal, A: index})
		return nil
	}
	if index, ok := fc.compiler.globalIndex[name]; ok {
		fc.chunk.Emit(Instruction{Op: OpSetGlobal, A: index})
		return nil
	}
	return fmt.Errorf("compiler: unresolved assignment target '%s' at %d:%d", name, span.Line, span.Column)
}

func (fc *funcCompiler) emitConstant(v value.Value) {
	fc.chunk.Emit(Instruction{Op: OpConstant, A: fc.chunk.AddConstant(v)})
}

func (fc *funcCompiler) emitJump(op Opcode) int {
	return fc.chunk.Emit(Instruction{Op: op, A: -1})
}

func (fc *funcCompiler) currentLoop() *loopContext {
	if len(fc.loops) == 0 {
		return nil
	}
	return fc.loops[len(fc.loops)-1]
}
