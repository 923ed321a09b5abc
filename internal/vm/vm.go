package vm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/intrinsics"
	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

// MaxCallDepth bounds recursion before the VM reports a stack overflow.
const MaxCallDepth = 512

// RuntimeError is a category-8 failure: the VM stops and the process exits
// non-zero.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

type frame struct {
	chunk    *Chunk
	pc       int
	base     int // first local slot on the value stack
	name     string
	captures []value.Value
}

type handler struct {
	frameIndex int
	stackDepth int
	target     int
}

// VM is the single-threaded stack machine. It owns its stacks and globals
// and holds a shared read-only reference to the Program.
type VM struct {
	program  *Program
	stack    []value.Value
	frames   []frame
	globals  []value.Value
	handlers []handler
	ctx      *intrinsics.Context
}

// New creates a VM for one program run.
func New(program *Program, ctx *intrinsics.Context) *VM {
	if ctx == nil {
		ctx = intrinsics.NewContext()
	}
	ctx.ProgramDump = program.Disassemble
	return &VM{
		program: program,
		globals: make([]value.Value, len(program.Globals)),
		ctx:     ctx,
	}
}

// Run executes the main chunk.
func (vm *VM) Run() error {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.handlers = vm.handlers[:0]
	vm.reserveLocals(0, vm.program.MainLocals)
	vm.frames = append(vm.frames, frame{chunk: vm.program.Chunk, base: 0, name: "main"})
	return vm.run()
}

// RunTest executes one compiled test body against the already-initialized
// globals. Run must have executed first so function globals exist.
func (vm *VM) RunTest(test TestCase) error {
	fn := vm.program.Functions[test.FunctionIndex]
	vm.stack = vm.stack[:0]
	vm.handlers = vm.handlers[:0]
	vm.frames = vm.frames[:0]
	vm.reserveLocals(0, fn.LocalCount)
	vm.frames = append(vm.frames, frame{chunk: fn.Chunk, base: 0, name: fn.Name})
	return vm.run()
}

func (vm *VM) reserveLocals(base, count int) {
	for len(vm.stack) < base+count {
		vm.stack = append(vm.stack, value.Nil())
	}
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek() value.Value {
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) currentFrame() *frame {
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VM) runtimeErrorf(format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)
	if len(vm.frames) > 0 {
		message = fmt.Sprintf("%s (in %s)", message, vm.currentFrame().name)
	}
	return &RuntimeError{Message: message}
}

func (vm *VM) run() error {
	for {
		f := vm.currentFrame()
		if f.pc >= len(f.chunk.Instructions) {
			return vm.runtimeErrorf("instruction pointer ran off the chunk")
		}
		inst := f.chunk.Instructions[f.pc]
		f.pc++

		switch inst.Op {
		case OpConstant:
			vm.push(f.chunk.Constants[inst.A])
		case OpGetGlobal:
			vm.push(vm.globals[inst.A])
		case OpSetGlobal:
			vm.globals[inst.A] = vm.peek()
		case OpPop:
			vm.pop()
		case OpGetLocal:
			vm.push(vm.stack[f.base+inst.A])
		case OpSetLocal:
			vm.stack[f.base+inst.A] = vm.peek()
		case OpGetCapture:
			vm.push(f.captures[inst.A])

		case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo:
			if err := vm.binaryArithmetic(inst.Op); err != nil {
				return err
			}
		case OpEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(value.Bool(left.Equals(right)))
		case OpNotEqual:
			right, left := vm.pop(), vm.pop()
			vm.push(value.Bool(!left.Equals(right)))
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
			if err := vm.binaryComparison(inst.Op); err != nil {
				return err
			}
		case OpNegate:
			operand := vm.pop()
			switch operand.Kind {
			case value.IntKind:
				vm.push(value.Int(-operand.AsInt()))
			case value.FloatKind:
				vm.push(value.Float(-operand.AsFloat()))
			default:
				return vm.runtimeErrorf("cannot negate %s", operand.TypeName())
			}
		case OpNot:
			vm.push(value.Bool(!vm.pop().IsTruthy()))

		case OpTypeIs:
			vm.push(value.Bool(typeMatches(inst.Check, vm.pop())))

		case OpJump:
			f.pc = inst.A
		case OpJumpIfFalse:
			if !vm.pop().IsTruthy() {
				f.pc = inst.A
			}
		case OpJumpIfNil:
			if vm.peek().IsNil() {
				vm.pop()
				f.pc = inst.A
			}

		case OpPrint:
			printed := vm.pop()
			fmt.Fprintln(vm.ctx.Stdout, printed.Inspect())
			vm.push(value.Void())

		case OpBuiltinCall:
			argCount := inst.B
			args := make([]value.Value, argCount)
			copy(args, vm.stack[len(vm.stack)-argCount:])
			vm.stack = vm.stack[:len(vm.stack)-argCount]
			result, err := intrinsics.Call(vm.ctx, stdlib.FunctionKind(inst.A), args)
			if err != nil {
				var exit *intrinsics.ExitRequest
				if errors.As(err, &exit) {
					return exit
				}
				var thrown *intrinsics.Thrown
				if errors.As(err, &thrown) {
					if cont, unwindErr := vm.unwind(thrown.Value); unwindErr != nil {
						return unwindErr
					} else if cont {
						continue
					}
				}
				return vm.runtimeErrorf("%s", err.Error())
			}
			vm.push(result)

		case OpCall:
			if err := vm.callValue(inst.A); err != nil {
				return err
			}

		case OpMakeList:
			elements := make([]value.Value, inst.A)
			copy(elements, vm.stack[len(vm.stack)-inst.A:])
			vm.stack = vm.stack[:len(vm.stack)-inst.A]
			vm.push(value.NewList(&value.List{Elements: elements}))

		case OpIndex:
			if err := vm.indexValue(); err != nil {
				return err
			}

		case OpMakeDict:
			entries := make(map[string]value.Value, inst.A)
			window := vm.stack[len(vm.stack)-inst.A*2:]
			for i := 0; i < inst.A; i++ {
				entries[window[i*2].AsString()] = window[i*2+1]
			}
			vm.stack = vm.stack[:len(vm.stack)-inst.A*2]
			vm.push(value.NewDict(&value.Dict{Entries: entries}))

		case OpGetField:
			if err := vm.getField(); err != nil {
				return err
			}

		case OpMakeStructPositional:
			template := vm.program.Structs[inst.A]
			count := len(template.FieldNames)
			fields := make([]value.Value, count)
			copy(fields, vm.stack[len(vm.stack)-count:])
			vm.stack = vm.stack[:len(vm.stack)-count]
			vm.push(value.NewStruct(&value.Struct{Template: template, Fields: fields}))

		case OpMakeStructNamed:
			template := vm.program.Structs[inst.A]
			fields := make([]value.Value, len(template.FieldNames))
			window := vm.stack[len(vm.stack)-inst.B*2:]
			for i := 0; i < inst.B; i++ {
				name := window[i*2].AsString()
				index := template.FieldIndex(name)
				if index < 0 {
					return vm.runtimeErrorf("struct '%s' has no field '%s'", template.Name, name)
				}
				fields[index] = window[i*2+1]
			}
			vm.stack = vm.stack[:len(vm.stack)-inst.B*2]
			vm.push(value.NewStruct(&value.Struct{Template: template, Fields: fields}))

		case OpMakeClosure:
			captures := make([]value.Value, inst.B)
			copy(captures, vm.stack[len(vm.stack)-inst.B:])
			vm.stack = vm.stack[:len(vm.stack)-inst.B]
			vm.push(value.NewClosure(&value.Closure{FunctionIndex: inst.A, Captures: captures}))

		case OpMakeError:
			payload := make([]value.Value, inst.A)
			copy(payload, vm.stack[len(vm.stack)-inst.A:])
			vm.stack = vm.stack[:len(vm.stack)-inst.A]
			marker := vm.pop().AsError()
			vm.push(value.NewError(&value.ErrorValue{
				ErrorName:   marker.ErrorName,
				VariantName: marker.VariantName,
				Ordinal:     marker.Ordinal,
				FieldNames:  marker.FieldNames,
				Fields:      payload,
			}))

		case OpConcatStrings:
			var builder strings.Builder
			window := vm.stack[len(vm.stack)-inst.A:]
			for _, part := range window {
				builder.WriteString(part.AsString())
			}
			vm.stack = vm.stack[:len(vm.stack)-inst.A]
			vm.push(value.String(builder.String()))

		case OpAssertNonNil:
			if vm.peek().IsNil() {
				return vm.runtimeErrorf("non-nil assertion failed: value is nil")
			}

		case OpPushHandler:
			vm.handlers = append(vm.handlers, handler{
				frameIndex: len(vm.frames) - 1,
				stackDepth: len(vm.stack),
				target:     inst.A,
			})
		case OpPopHandler:
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
		case OpThrow:
			thrown := vm.pop()
			if cont, err := vm.unwind(thrown); err != nil {
				return err
			} else if !cont {
				return nil
			}

		case OpReturn:
			result := vm.pop()
			returning := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]
			// Handlers installed by abandoned frames die with them.
			for len(vm.handlers) > 0 && vm.handlers[len(vm.handlers)-1].frameIndex >= len(vm.frames) {
				vm.handlers = vm.handlers[:len(vm.handlers)-1]
			}
			if len(vm.frames) == 0 {
				return nil
			}
			vm.stack = vm.stack[:returning.base-1]
			vm.push(result)

		default:
			return vm.runtimeErrorf("unknown opcode %d", inst.Op)
		}
	}
}

// unwind pops frames to the nearest handler and resumes there with the
// thrown value pushed. It reports whether execution continues.
func (vm *VM) unwind(thrown value.Value) (bool, error) {
	if len(vm.handlers) == 0 {
		return false, &RuntimeError{
			Message: fmt.Sprintf("unhandled error: %s", thrown.Inspect()),
		}
	}
	h := vm.handlers[len(vm.handlers)-1]
	vm.handlers = vm.handlers[:len(vm.handlers)-1]
	vm.frames = vm.frames[:h.frameIndex+1]
	vm.stack = vm.stack[:h.stackDepth]
	vm.currentFrame().pc = h.target
	vm.push(thrown)
	return true, nil
}

func (vm *VM) callValue(argCount int) error {
	calleePos := len(vm.stack) - argCount - 1
	callee := vm.stack[calleePos]

	var fn *Function
	var captures []value.Value
	switch callee.Kind {
	case value.FunctionKind:
		fn = vm.program.Functions[callee.AsFunction()]
	case value.ClosureKind:
		closure := callee.AsClosure()
		fn = vm.program.Functions[closure.FunctionIndex]
		captures = closure.Captures
	default:
		return vm.runtimeErrorf("cannot call %s", callee.TypeName())
	}

	if argCount != fn.Arity {
		return vm.runtimeErrorf("function '%s' expects %d arguments but %d provided",
			fn.Name, fn.Arity, argCount)
	}
	if len(vm.frames) >= MaxCallDepth {
		return vm.runtimeErrorf("stack overflow calling '%s'", fn.Name)
	}

	base := calleePos + 1
	vm.reserveLocals(base, fn.LocalCount)
	vm.frames = append(vm.frames, frame{
		chunk:    fn.Chunk,
		base:     base,
		name:     fn.Name,
		captures: captures,
	})
	return nil
}

func (vm *VM) binaryArithmetic(op Opcode) error {
	right, left := vm.pop(), vm.pop()

	if left.Kind == value.IntKind && right.Kind == value.IntKind {
		a, b := left.AsInt(), right.AsInt()
		switch op {
		case OpAdd:
			vm.push(value.Int(a + b))
		case OpSubtract:
			vm.push(value.Int(a - b))
		case OpMultiply:
			vm.push(value.Int(a * b))
		case OpDivide:
			if b == 0 {
				return vm.runtimeErrorf("division by zero")
			}
			vm.push(value.Int(a / b))
		case OpModulo:
			if b == 0 {
				return vm.runtimeErrorf("division by zero")
			}
			vm.push(value.Int(a % b))
		}
		return nil
	}
	if left.Kind == value.FloatKind && right.Kind == value.FloatKind {
		a, b := left.AsFloat(), right.AsFloat()
		switch op {
		case OpAdd:
			vm.push(value.Float(a + b))
		case OpSubtract:
			vm.push(value.Float(a - b))
		case OpMultiply:
			vm.push(value.Float(a * b))
		case OpDivide:
			vm.push(value.Float(a / b))
		default:
			return vm.runtimeErrorf("operator '%%' requires Int operands")
		}
		return nil
	}
	if op == OpAdd && left.Kind == value.StringKind && right.Kind == value.StringKind {
		vm.push(value.String(left.AsString() + right.AsString()))
		return nil
	}
	return vm.runtimeErrorf("cannot apply operator to %s and %s", left.TypeName(), right.TypeName())
}

func (vm *VM) binaryComparison(op Opcode) error {
	right, left := vm.pop(), vm.pop()

	var cmp int
	switch {
	case left.Kind == value.IntKind && right.Kind == value.IntKind:
		a, b := left.AsInt(), right.AsInt()
		cmp = compareOrdered(a < b, a == b)
	case left.Kind == value.FloatKind && right.Kind == value.FloatKind:
		a, b := left.AsFloat(), right.AsFloat()
		cmp = compareOrdered(a < b, a == b)
	case left.Kind == value.StringKind && right.Kind == value.StringKind:
		a, b := left.AsString(), right.AsString()
		cmp = compareOrdered(a < b, a == b)
	default:
		return vm.runtimeErrorf("cannot compare %s with %s", left.TypeName(), right.TypeName())
	}

	switch op {
	case OpGreater:
		vm.push(value.Bool(cmp > 0))
	case OpGreaterEqual:
		vm.push(value.Bool(cmp >= 0))
	case OpLess:
		vm.push(value.Bool(cmp < 0))
	case OpLessEqual:
		vm.push(value.Bool(cmp <= 0))
	}
	return nil
}

func compareOrdered(less, equal bool) int {
	if less {
		return -1
	}
	if equal {
		return 0
	}
	return 1
}

func (vm *VM) indexValue() error {
	index, object := vm.pop(), vm.pop()

	switch object.Kind {
	case value.ListKind:
		list := object.AsList()
		i := index.AsInt()
		// Negative indexes count from the end.
		if i < 0 {
			i += int64(len(list.Elements))
		}
		if i < 0 || i >= int64(len(list.Elements)) {
			return vm.runtimeErrorf("list index %d out of range (len %d)",
				index.AsInt(), len(list.Elements))
		}
		vm.push(list.Elements[i])
		return nil
	case value.DictKind:
		dict := object.AsDict()
		key := index.AsString()
		if entry, ok := dict.Entries[key]; ok {
			vm.push(entry)
			return nil
		}
		return vm.runtimeErrorf("dict has no key '%s'", key)
	default:
		return vm.runtimeErrorf("cannot index into %s", object.TypeName())
	}
}

func (vm *VM) getField() error {
	name, object := vm.pop(), vm.pop()
	fieldName := name.AsString()

	switch object.Kind {
	case value.StructKind:
		s := object.AsStruct()
		index := s.Template.FieldIndex(fieldName)
		if index < 0 {
			return vm.runtimeErrorf("struct '%s' has no field '%s'", s.Template.Name, fieldName)
		}
		vm.push(s.Fields[index])
		return nil
	case value.ErrorKind:
		e := object.AsError()
		if field, ok := e.Field(fieldName); ok {
			vm.push(field)
			return nil
		}
		return vm.runtimeErrorf("error '%s' has no field '%s'", e.Path(), fieldName)
	default:
		return vm.runtimeErrorf("%s has no field '%s'", object.TypeName(), fieldName)
	}
}

// typeMatches implements TypeIs.
func typeMatches(check *TypeCheck, v value.Value) bool {
	switch check.Kind {
	case CheckBool:
		return v.Kind == value.BoolKind
	case CheckInt:
		return v.Kind == value.IntKind
	case CheckFloat:
		return v.Kind == value.FloatKind
	case CheckString:
		return v.Kind == value.StringKind
	case CheckNil:
		return v.Kind == value.NilKind
	case CheckStruct:
		return v.Kind == value.StructKind && v.AsStruct().Template.Name == check.Name
	case CheckEnum:
		return v.Kind == value.EnumKind && v.AsEnum().EnumName == check.Name
	case CheckErrorVariant:
		if v.Kind != value.ErrorKind {
			return false
		}
		e := v.AsError()
		return e.ErrorName == check.Name && e.VariantName == check.Variant
	case CheckOptional:
		return v.Kind == value.NilKind || typeMatches(check.Inner, v)
	default:
		return false
	}
}
