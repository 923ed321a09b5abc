package vm

import (
	"fmt"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/typechecker"
	"github.com/funvibe/tea/internal/value"
)

func (fc *funcCompiler) compileCall(call *ast.CallExpression) error {
	info := fc.compiler.info.Calls[call]
	if info == nil {
		info = &typechecker.CallInfo{Kind: typechecker.CallValue}
	}

	switch info.Kind {
	case typechecker.CallBuiltin:
		for _, arg := range call.Arguments {
			if err := fc.compileExpression(arg.Expression); err != nil {
				return err
			}
		}
		if info.Builtin == stdlib.Print || info.Builtin == stdlib.Println {
			fc.chunk.Emit(Instruction{Op: OpPrint})
			return nil
		}
		fc.emitBuiltin(int(info.Builtin), len(call.Arguments))
		return nil

	case typechecker.CallError:
		fc.emitConstant(fc.compiler.errorMarker(info.ErrorName, info.VariantName))
		for _, arg := range call.Arguments {
			if err := fc.compileExpression(arg.Expression); err != nil {
				return err
			}
		}
		fc.chunk.Emit(Instruction{Op: OpMakeError, A: len(call.Arguments)})
		return nil

	case typechecker.CallStruct:
		templateIndex, ok := fc.compiler.structIndex[info.StructName]
		if !ok {
			return fmt.Errorf("compiler: unknown struct template '%s'", info.StructName)
		}
		if info.Named {
			for _, arg := range call.Arguments {
				fc.emitConstant(value.String(arg.Name))
				if err := fc.compileExpression(arg.Expression); err != nil {
					return err
				}
			}
			fc.chunk.Emit(Instruction{Op: OpMakeStructNamed, A: templateIndex, B: len(call.Arguments)})
			return nil
		}
		for _, arg := range call.Arguments {
			if err := fc.compileExpression(arg.Expression); err != nil {
				return err
			}
		}
		fc.chunk.Emit(Instruction{Op: OpMakeStructPositional, A: templateIndex})
		return nil

	default:
		return fc.compileValueCall(call)
	}
}

func (fc *funcCompiler) compileValueCall(call *ast.CallExpression) error {
	// Declared functions get named-argument reordering and call-site
	// defaults; everything else is a plain value call.
	if identifier, ok := call.Callee.(*ast.Identifier); ok {
		_, isLocal := fc.resolveLocal(identifier.Name)
		_, isCapture := fc.resolveCapture(identifier.Name)
		if !isLocal && !isCapture {
			if decl, ok := fc.compiler.functionDecls[identifier.Name]; ok {
				return fc.compileDeclaredCall(call, identifier, decl)
			}
		}
	}

	if err := fc.compileExpression(call.Callee); err != nil {
		return err
	}
	for _, arg := range call.Arguments {
		if err := fc.compileExpression(arg.Expression); err != nil {
			return err
		}
	}
	fc.chunk.Emit(Instruction{Op: OpCall, A: len(call.Arguments)})
	return nil
}

func (fc *funcCompiler) compileDeclaredCall(call *ast.CallExpression, callee *ast.Identifier, decl *ast.FunctionStatement) error {
	named := false
	for _, arg := range call.Arguments {
		if arg.Name != "" {
			named = true
			break
		}
	}

	if !named {
		if err := fc.emitName(callee.Name, callee.NameSpan); err != nil {
			return err
		}
		for _, arg := range call.Arguments {
			if err := fc.compileExpression(arg.Expression); err != nil {
				return err
			}
		}
		// Call-site defaults fill the missing trailing parameters.
		for i := len(call.Arguments); i < len(decl.Parameters); i++ {
			if decl.Parameters[i].DefaultValue == nil {
				return fmt.Errorf("compiler: call to '%s' is missing argument '%s'",
					decl.Name, decl.Parameters[i].Name)
			}
			if err := fc.compileExpression(decl.Parameters[i].DefaultValue); err != nil {
				return err
			}
		}
		fc.chunk.Emit(Instruction{Op: OpCall, A: len(decl.Parameters)})
		return nil
	}

	// Named arguments evaluate in source order into temp slots, then load
	// in parameter order.
	fc.pushScope()
	temps := make(map[string]int, len(call.Arguments))
	for _, arg := range call.Arguments {
		if err := fc.compileExpression(arg.Expression); err != nil {
			return err
		}
		slot := fc.declareTemp()
		temps[arg.Name] = slot
		fc.chunk.Emit(Instruction{Op: OpSetLocal, A: slot})
		fc.chunk.Emit(Instruction{Op: OpPop})
	}

	if err := fc.emitName(callee.Name, callee.NameSpan); err != nil {
		return err
	}
	for _, param := range decl.Parameters {
		if slot, ok := temps[param.Name]; ok {
			fc.chunk.Emit(Instruction{Op: OpGetLocal, A: slot})
			continue
		}
		if param.DefaultValue == nil {
			return fmt.Errorf("compiler: call to '%s' is missing argument '%s'",
				decl.Name, param.Name)
		}
		if err := fc.compileExpression(param.DefaultValue); err != nil {
			return err
		}
	}
	fc.chunk.Emit(Instruction{Op: OpCall, A: len(decl.Parameters)})
	fc.popScope()
	return nil
}
