package vm

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/typesystem"
	"github.com/funvibe/tea/internal/value"
)

// compileStatement emits one statement. popResult is unused for statements
// that produce no value; expression statements always pop.
func (fc *funcCompiler) compileStatement(stmt ast.Statement, _ bool) error {
	switch s := stmt.(type) {
	case *ast.UseStatement:
		return nil
	case *ast.VarStatement:
		return fc.compileVar(s)
	case *ast.FunctionStatement, *ast.TestStatement, *ast.StructStatement,
		*ast.ErrorStatement, *ast.EnumStatement, *ast.UnionStatement:
		// Handled at module level.
		return nil
	case *ast.ConditionalStatement:
		return fc.compileConditional(s)
	case *ast.LoopStatement:
		return fc.compileLoop(s)
	case *ast.ReturnStatement:
		if s.Expression != nil {
			if err := fc.compileExpression(s.Expression); err != nil {
				return err
			}
		} else {
			fc.emitConstant(value.Void())
		}
		fc.chunk.Emit(Instruction{Op: OpReturn})
		return nil
	case *ast.BreakStatement:
		loop := fc.currentLoop()
		if loop == nil {
			return fmt.Errorf("compiler: 'break' outside of a loop")
		}
		loop.breakJumps = append(loop.breakJumps, fc.emitJump(OpJump))
		return nil
	case *ast.ContinueStatement:
		loop := fc.currentLoop()
		if loop == nil {
			return fmt.Errorf("compiler: 'continue' outside of a loop")
		}
		loop.continueJumps = append(loop.continueJumps, fc.emitJump(OpJump))
		return nil
	case *ast.ThrowStatement:
		if err := fc.compileExpression(s.Expression); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpThrow})
		return nil
	case *ast.ExpressionStatement:
		if err := fc.compileExpression(s.Expression); err != nil {
			return err
		}
		fc.chunk.Emit(Instruction{Op: OpPop})
		return nil
	default:
		return fmt.Errorf("compiler: unsupported statement %T", stmt)
	}
}

func (fc *funcCompiler) compileVar(stmt *ast.VarStatement) error {
	for i := range stmt.Bindings {
		b := &stmt.Bindings[i]
		if b.Initializer != nil {
			if err := fc.compileExpression(b.Initializer); err != nil {
				return err
			}
		} else {
			fc.emitConstant(value.Nil())
		}

		if len(fc.scopes) == 0 {
			// Module scope: globals, indexed by order of declaration.
			index := fc.compiler.ensureGlobal(fc.compiler.globalPrefix + b.Name)
			fc.chunk.Emit(Instruction{Op: OpSetGlobal, A: index})
		} else {
			slot := fc.declareLocal(b.Name)
			fc.chunk.Emit(Instruction{Op: OpSetLocal, A: slot})
		}
		fc.chunk.Emit(Instruction{Op: OpPop})
	}
	return nil
}

func (fc *funcCompiler) compileConditional(stmt *ast.ConditionalStatement) error {
	if err := fc.compileExpression(stmt.Condition); err != nil {
		return err
	}
	if stmt.Kind == ast.ConditionalUnless {
		fc.chunk.Emit(Instruction{Op: OpNot})
	}

	elseJump := fc.emitJump(OpJumpIfFalse)
	if err := fc.compileBlock(&stmt.Consequent); err != nil {
		return err
	}

	if stmt.Alternative != nil {
		endJump := fc.emitJump(OpJump)
		fc.chunk.PatchJump(elseJump)
		if err := fc.compileBlock(stmt.Alternative); err != nil {
			return err
		}
		fc.chunk.PatchJump(endJump)
	} else {
		fc.chunk.PatchJump(elseJump)
	}
	return nil
}

func (fc *funcCompiler) compileBlock(block *ast.Block) error {
	fc.pushScope()
	for _, stmt := range block.Statements {
		if err := fc.compileStatement(stmt, false); err != nil {
			return err
		}
	}
	fc.popScope()
	return nil
}

func (fc *funcCompiler) compileLoop(stmt *ast.LoopStatement) error {
	switch stmt.Kind {
	case ast.LoopFor:
		return fc.compileForLoop(stmt)
	default:
		return fc.compileWhileLoop(stmt)
	}
}

func (fc *funcCompiler) compileWhileLoop(stmt *ast.LoopStatement) error {
	loopStart := fc.chunk.Len()
	if err := fc.compileExpression(stmt.Condition); err != nil {
		return err
	}
	if stmt.Kind == ast.LoopUntil {
		fc.chunk.Emit(Instruction{Op: OpNot})
	}
	exitJump := fc.emitJump(OpJumpIfFalse)

	fc.loops = append(fc.loops, &loopContext{})
	if err := fc.compileBlock(&stmt.Body); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	for _, jump := range loop.continueJumps {
		fc.chunk.Instructions[jump].A = loopStart
	}
	fc.chunk.Emit(Instruction{Op: OpJump, A: loopStart})
	fc.chunk.PatchJump(exitJump)
	for _, jump := range loop.breakJumps {
		fc.chunk.PatchJump(jump)
	}
	return nil
}

// compileForLoop materializes an iterator: an index counter over a list
// (or over a dict's key list), or a plain integer counter for ranges.
func (fc *funcCompiler) compileForLoop(stmt *ast.LoopStatement) error {
	fc.pushScope()
	defer fc.popScope()

	if rangeExpr, ok := stmt.Iterable.(*ast.RangeExpression); ok {
		return fc.compileRangeFor(stmt, rangeExpr)
	}

	if _, ok := fc.compiler.info.Types[stmt.Iterable].(typesystem.Dict); ok {
		return fc.compileDictFor(stmt)
	}
	return fc.compileListFor(stmt)
}

func (fc *funcCompiler) compileRangeFor(stmt *ast.LoopStatement, rangeExpr *ast.RangeExpression) error {
	counter := fc.declareLocal(stmt.Bindings[0].Name)
	limit := fc.declareTemp()

	if err := fc.compileExpression(rangeExpr.Start); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: counter})
	fc.chunk.Emit(Instruction{Op: OpPop})
	if err := fc.compileExpression(rangeExpr.End); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: limit})
	fc.chunk.Emit(Instruction{Op: OpPop})

	loopStart := fc.chunk.Len()
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: counter})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: limit})
	if rangeExpr.Inclusive {
		fc.chunk.Emit(Instruction{Op: OpLessEqual})
	} else {
		fc.chunk.Emit(Instruction{Op: OpLess})
	}
	exitJump := fc.emitJump(OpJumpIfFalse)

	fc.loops = append(fc.loops, &loopContext{})
	if err := fc.compileBlock(&stmt.Body); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	increment := fc.chunk.Len()
	for _, jump := range loop.continueJumps {
		fc.chunk.Instructions[jump].A = increment
	}
	fc.emitIncrement(counter)
	fc.chunk.Emit(Instruction{Op: OpJump, A: loopStart})

	fc.chunk.PatchJump(exitJump)
	for _, jump := range loop.breakJumps {
		fc.chunk.PatchJump(jump)
	}
	return nil
}

func (fc *funcCompiler) compileListFor(stmt *ast.LoopStatement) error {
	element := fc.declareLocal(stmt.Bindings[0].Name)
	list := fc.declareTemp()
	index := fc.declareTemp()

	if err := fc.compileExpression(stmt.Iterable); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: list})
	fc.chunk.Emit(Instruction{Op: OpPop})
	fc.emitConstant(value.Int(0))
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpPop})

	loopStart := fc.chunk.Len()
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: list})
	fc.emitBuiltin(builtinLengthKind, 1)
	fc.chunk.Emit(Instruction{Op: OpLess})
	exitJump := fc.emitJump(OpJumpIfFalse)

	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: list})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpIndex})
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: element})
	fc.chunk.Emit(Instruction{Op: OpPop})

	fc.loops = append(fc.loops, &loopContext{})
	if err := fc.compileBlock(&stmt.Body); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	increment := fc.chunk.Len()
	for _, jump := range loop.continueJumps {
		fc.chunk.Instructions[jump].A = increment
	}
	fc.emitIncrement(index)
	fc.chunk.Emit(Instruction{Op: OpJump, A: loopStart})

	fc.chunk.PatchJump(exitJump)
	for _, jump := range loop.breakJumps {
		fc.chunk.PatchJump(jump)
	}
	return nil
}

// compileDictFor walks a materialized, iteration-stable key list; the value
// binding (when present) indexes back into the dict.
func (fc *funcCompiler) compileDictFor(stmt *ast.LoopStatement) error {
	key := fc.declareLocal(stmt.Bindings[0].Name)
	valueSlot := -1
	if len(stmt.Bindings) > 1 {
		valueSlot = fc.declareLocal(stmt.Bindings[1].Name)
	}
	dict := fc.declareTemp()
	keys := fc.declareTemp()
	index := fc.declareTemp()

	if err := fc.compileExpression(stmt.Iterable); err != nil {
		return err
	}
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: dict})
	fc.chunk.Emit(Instruction{Op: OpPop})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: dict})
	fc.emitBuiltin(builtinDictKeysKind, 1)
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: keys})
	fc.chunk.Emit(Instruction{Op: OpPop})
	fc.emitConstant(value.Int(0))
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpPop})

	loopStart := fc.chunk.Len()
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: keys})
	fc.emitBuiltin(builtinLengthKind, 1)
	fc.chunk.Emit(Instruction{Op: OpLess})
	exitJump := fc.emitJump(OpJumpIfFalse)

	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: keys})
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: index})
	fc.chunk.Emit(Instruction{Op: OpIndex})
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: key})
	fc.chunk.Emit(Instruction{Op: OpPop})
	if valueSlot >= 0 {
		fc.chunk.Emit(Instruction{Op: OpGetLocal, A: dict})
		fc.chunk.Emit(Instruction{Op: OpGetLocal, A: key})
		fc.chunk.Emit(Instruction{Op: OpIndex})
		fc.chunk.Emit(Instruction{Op: OpSetLocal, A: valueSlot})
		fc.chunk.Emit(Instruction{Op: OpPop})
	}

	fc.loops = append(fc.loops, &loopContext{})
	if err := fc.compileBlock(&stmt.Body); err != nil {
		return err
	}
	loop := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	increment := fc.chunk.Len()
	for _, jump := range loop.continueJumps {
		fc.chunk.Instructions[jump].A = increment
	}
	fc.emitIncrement(index)
	fc.chunk.Emit(Instruction{Op: OpJump, A: loopStart})

	fc.chunk.PatchJump(exitJump)
	for _, jump := range loop.breakJumps {
		fc.chunk.PatchJump(jump)
	}
	return nil
}

func (fc *funcCompiler) emitIncrement(slot int) {
	fc.chunk.Emit(Instruction{Op: OpGetLocal, A: slot})
	fc.emitConstant(value.Int(1))
	fc.chunk.Emit(Instruction{Op: OpAdd})
	fc.chunk.Emit(Instruction{Op: OpSetLocal, A: slot})
	fc.chunk.Emit(Instruction{Op: OpPop})
}
