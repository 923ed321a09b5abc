package vm

import (
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/ast"
	"github.com/funvibe/tea/internal/value"
)

// TypeCheckKind tags a runtime type test.
type TypeCheckKind int

const (
	CheckBool TypeCheckKind = iota
	CheckInt
	CheckFloat
	CheckString
	CheckNil
	CheckStruct
	CheckEnum
	CheckErrorVariant
	CheckOptional
)

// TypeCheck is the payload of a TypeIs instruction.
type TypeCheck struct {
	Kind    TypeCheckKind
	Name    string     // struct/enum/error name
	Variant string     // error variant
	Inner   *TypeCheck // optional inner test
}

func (t *TypeCheck) String() string {
	switch t.Kind {
	case CheckBool:
		return "Bool"
	case CheckInt:
		return "Int"
	case CheckFloat:
		return "Float"
	case CheckString:
		return "String"
	case CheckNil:
		return "Nil"
	case CheckStruct, CheckEnum:
		return t.Name
	case CheckErrorVariant:
		return t.Name + "." + t.Variant
	case CheckOptional:
		return t.Inner.String() + "?"
	default:
		return "?"
	}
}

// Instruction is one structured VM instruction. A and B are the integer
// operands; Check carries the TypeIs payload.
type Instruction struct {
	Op    Opcode
	A     int
	B     int
	Check *TypeCheck
}

func (i Instruction) String() string {
	switch i.Op {
	case OpTypeIs:
		return fmt.Sprintf("%s %s", i.Op, i.Check)
	case OpBuiltinCall, OpMakeStructNamed, OpMakeClosure:
		return fmt.Sprintf("%s %d %d", i.Op, i.A, i.B)
	case OpConstant, OpGetGlobal, OpSetGlobal, OpGetLocal, OpSetLocal, OpGetCapture,
		OpJump, OpJumpIfFalse, OpJumpIfNil, OpCall, OpMakeList, OpMakeDict,
		OpMakeStructPositional, OpMakeError, OpConcatStrings, OpPushHandler:
		return fmt.Sprintf("%s %d", i.Op, i.A)
	default:
		return i.Op.String()
	}
}

// Chunk is an instruction vector plus its constant pool.
type Chunk struct {
	Instructions []Instruction
	Constants    []value.Value
}

func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(instruction Instruction) int {
	c.Instructions = append(c.Instructions, instruction)
	return len(c.Instructions) - 1
}

// AddConstant adds a constant to the pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// PatchJump rewrites a previously emitted jump to target the next
// instruction slot.
func (c *Chunk) PatchJump(index int) {
	c.Instructions[index].A = len(c.Instructions)
}

func (c *Chunk) Len() int {
	return len(c.Instructions)
}

// Function is one compiled function body.
type Function struct {
	Name       string
	Arity      int
	LocalCount int
	Chunk      *Chunk
}

// TestCase is one compiled test block.
type TestCase struct {
	Name          string
	NameSpan      ast.SourceSpan
	FunctionIndex int
}

// Program is the compiler's output: immutable after emission.
type Program struct {
	Chunk      *Chunk
	MainLocals int
	Functions  []*Function
	Globals    []string
	Structs    []*value.StructTemplate
	Tests      []TestCase
}

// Disassemble renders the whole program, mostly for debugging and the
// `tea disasm` command.
func (p *Program) Disassemble() string {
	var b strings.Builder
	b.WriteString("== main ==\n")
	disassembleChunk(&b, p.Chunk)
	for i, fn := range p.Functions {
		fmt.Fprintf(&b, "== fn %d %s/%d ==\n", i, fn.Name, fn.Arity)
		disassembleChunk(&b, fn.Chunk)
	}
	return b.String()
}

func disassembleChunk(b *strings.Builder, chunk *Chunk) {
	for i, instruction := range chunk.Instructions {
		fmt.Fprintf(b, "%04d %s", i, instruction)
		if instruction.Op == OpConstant && instruction.A < len(chunk.Constants) {
			fmt.Fprintf(b, "  ; %s", chunk.Constants[instruction.A].Inspect())
		}
		b.WriteByte('\n')
	}
}
