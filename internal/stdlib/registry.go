// Package stdlib is the static registry of built-in modules and functions.
// It is the single source of truth for the type checker's knowledge of
// external calls and for the VM's intrinsic dispatch.
package stdlib

// FunctionKind identifies one intrinsic operation.
type FunctionKind int

const (
	Print FunctionKind = iota
	Println
	ToString
	TypeOf
	Length
	Exit
	Append
	Delete
	Clear
	Min
	Max

	UtilClampInt

	AssertOk
	AssertEq
	AssertNe
	AssertSnapshot
	AssertFail
	AssertEmpty

	EnvGet
	EnvSet
	EnvUnset
	EnvHas
	EnvVars
	EnvCwd

	FsReadText
	FsWriteText
	FsWriteTextAtomic
	FsCreateDir
	FsEnsureDir
	FsRemove
	FsExists
	FsListDir
	FsWalk
	FsGlob

	PathJoin
	PathComponents
	PathDirname
	PathBasename
	PathExtension
	PathNormalize
	PathAbsolute
	PathRelative
	PathSeparator

	StringIndexOf
	StringSplit
	StringContains
	StringReplace

	IoReadLine
	IoReadAll
	IoReadBytes
	IoWrite
	IoWriteErr
	IoFlush

	JsonEncode
	JsonDecode
	YamlEncode
	YamlDecode

	ProcessRun
	ProcessSpawn
	ProcessWait
	ProcessKill
	ProcessReadStdout
	ProcessReadStderr
	ProcessWriteStdin
	ProcessCloseStdin

	ArgsAll
	ArgsProgram

	CliCapture
	CliArgs
	CliParse

	DebugProgram

	// DictKeys is internal: the compiler materializes dict iteration
	// through it. It has no registry entry.
	DictKeys
)

// Arity is the accepted argument count of a registered function.
type Arity struct {
	Min int
	Max int // -1 means unbounded
}

// Exact builds an arity accepting exactly n arguments.
func Exact(n int) Arity {
	return Arity{Min: n, Max: n}
}

// Range builds an arity accepting between min and max arguments.
func Range(min, max int) Arity {
	return Arity{Min: min, Max: max}
}

// Allows reports whether count satisfies the arity.
func (a Arity) Allows(count int) bool {
	if count < a.Min {
		return false
	}
	if a.Max >= 0 && count > a.Max {
		return false
	}
	return true
}

// StdType is the coarse parameter/return type of a registered function.
// Any matches every value; the type checker maps the rest onto the full
// type model.
type StdType int

const (
	Any StdType = iota
	Bool
	Int
	Float
	String
	List
	Dict
	Struct
	Nil
	Void
)

// Function describes one registered function.
type Function struct {
	Name       string
	Kind       FunctionKind
	Arity      Arity
	Params     []StdType
	ReturnType StdType
}

// Module is one registered stdlib module.
type Module struct {
	Path      string
	Doc       string
	Functions []Function
}

// Find returns the module's function with the given name.
func (m *Module) Find(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}

// FindModule returns the registered module with the given path.
func FindModule(path string) *Module {
	for i := range Modules {
		if Modules[i].Path == path {
			return &Modules[i]
		}
	}
	return nil
}

// ModuleForFunction returns the path of the module exporting a function with
// the given name. It backs the resolver's import-suggestion diagnostics.
func ModuleForFunction(name string) (string, bool) {
	for i := range Modules {
		if Modules[i].Find(name) != nil {
			return Modules[i].Path, true
		}
	}
	return "", false
}

// FindBuiltin returns the unqualified builtin with the given name.
func FindBuiltin(name string) *Function {
	for i := range Builtins {
		if Builtins[i].Name == name {
			return &Builtins[i]
		}
	}
	return nil
}
