// Package vm holds Tea's bytecode representation, the compiler that lowers
// the checked AST into it, and the stack machine that executes it.
package vm

// Opcode identifies a VM instruction.
type Opcode uint8

const (
	OpConstant Opcode = iota // A = constant index
	OpGetGlobal              // A = global index
	OpSetGlobal              // A = global index (peeks)
	OpPop
	OpGetLocal   // A = slot
	OpSetLocal   // A = slot (peeks)
	OpGetCapture // A = capture index (closure frames only)

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo

	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual

	OpNegate
	OpNot

	OpTypeIs // Check = the runtime type test

	OpJump        // A = target
	OpJumpIfFalse // A = target (pops condition)
	OpJumpIfNil   // A = target (pops and jumps only when top is nil)

	OpPrint

	OpBuiltinCall // A = stdlib.FunctionKind, B = arg count
	OpCall        // A = arg count

	OpMakeList // A = element count
	OpIndex
	OpMakeDict // A = entry count (stack holds key/value pairs)
	OpGetField // stack: [struct, field-name]
	OpMakeStructPositional // A = template index
	OpMakeStructNamed      // A = template index, B = arg count (name/value pairs)
	OpMakeClosure          // A = function index, B = capture count
	OpMakeError            // A = payload count (marker below the payload)

	OpConcatStrings // A = part count
	OpAssertNonNil

	OpPushHandler // A = catch target
	OpPopHandler
	OpThrow

	OpReturn
)

var opcodeNames = map[Opcode]string{
	OpConstant:             "CONSTANT",
	OpGetGlobal:            "GET_GLOBAL",
	OpSetGlobal:            "SET_GLOBAL",
	OpPop:                  "POP",
	OpGetLocal:             "GET_LOCAL",
	OpSetLocal:             "SET_LOCAL",
	OpGetCapture:           "GET_CAPTURE",
	OpAdd:                  "ADD",
	OpSubtract:             "SUB",
	OpMultiply:             "MUL",
	OpDivide:               "DIV",
	OpModulo:               "MOD",
	OpEqual:                "EQ",
	OpNotEqual:             "NEQ",
	OpGreater:              "GT",
	OpGreaterEqual:         "GTE",
	OpLess:                 "LT",
	OpLessEqual:            "LTE",
	OpNegate:               "NEG",
	OpNot:                  "NOT",
	OpTypeIs:               "TYPE_IS",
	OpJump:                 "JUMP",
	OpJumpIfFalse:          "JUMP_IF_FALSE",
	OpJumpIfNil:            "JUMP_IF_NIL",
	OpPrint:                "PRINT",
	OpBuiltinCall:          "BUILTIN",
	OpCall:                 "CALL",
	OpMakeList:             "MAKE_LIST",
	OpIndex:                "INDEX",
	OpMakeDict:             "MAKE_DICT",
	OpGetField:             "GET_FIELD",
	OpMakeStructPositional: "MAKE_STRUCT_POS",
	OpMakeStructNamed:      "MAKE_STRUCT_NAMED",
	OpMakeClosure:          "MAKE_CLOSURE",
	OpMakeError:            "MAKE_ERROR",
	OpConcatStrings:        "CONCAT_STRINGS",
	OpAssertNonNil:         "ASSERT_NON_NIL",
	OpPushHandler:          "PUSH_HANDLER",
	OpPopHandler:           "POP_HANDLER",
	OpThrow:                "THROW",
	OpReturn:               "RETURN",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
