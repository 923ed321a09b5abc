package stdlib

// Builtins are the unqualified functions available without any `use`
// statement.
var Builtins = []Function{
	{Name: "print", Kind: Print, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Void},
	{Name: "println", Kind: Println, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Void},
	{Name: "type_of", Kind: TypeOf, Arity: Exact(1), Params: []StdType{Any}, ReturnType: String},
	{Name: "len", Kind: Length, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Int},
	{Name: "exit", Kind: Exit, Arity: Exact(1), Params: []StdType{Int}, ReturnType: Void},
	{Name: "append", Kind: Append, Arity: Exact(2), Params: []StdType{List, Any}, ReturnType: List},
	{Name: "delete", Kind: Delete, Arity: Exact(2), Params: []StdType{Dict, String}, ReturnType: Dict},
	{Name: "clear", Kind: Clear, Arity: Exact(1), Params: []StdType{Dict}, ReturnType: Dict},
	{Name: "min", Kind: Min, Arity: Exact(2), Params: []StdType{Any, Any}, ReturnType: Any},
	{Name: "max", Kind: Max, Arity: Exact(2), Params: []StdType{Any, Any}, ReturnType: Any},
}

// Modules is the process-wide registry, built once and never mutated.
var Modules = []Module{
	{
		Path: "std.debug",
		Doc:  "Debug utilities such as printing.",
		Functions: []Function{
			{Name: "print", Kind: Print, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Void},
			{Name: "program", Kind: DebugProgram, Arity: Exact(0), ReturnType: String},
		},
	},
	{
		Path: "std.assert",
		Doc:  "Assertions for Tea test blocks.",
		Functions: []Function{
			{Name: "ok", Kind: AssertOk, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Void},
			{Name: "eq", Kind: AssertEq, Arity: Exact(2), Params: []StdType{Any, Any}, ReturnType: Void},
			{Name: "ne", Kind: AssertNe, Arity: Exact(2), Params: []StdType{Any, Any}, ReturnType: Void},
			{Name: "snapshot", Kind: AssertSnapshot, Arity: Range(2, 3), Params: []StdType{String, String, String}, ReturnType: Void},
			{Name: "fail", Kind: AssertFail, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "empty", Kind: AssertEmpty, Arity: Exact(1), Params: []StdType{Any}, ReturnType: Void},
		},
	},
	{
		Path: "std.util",
		Doc:  "Utility predicates and helpers for runtime type inspection.",
		Functions: []Function{
			{Name: "to_string", Kind: ToString, Arity: Exact(1), Params: []StdType{Any}, ReturnType: String},
			{Name: "clamp_int", Kind: UtilClampInt, Arity: Exact(3), Params: []StdType{Int, Int, Int}, ReturnType: Int},
		},
	},
	{
		Path: "std.env",
		Doc:  "Process environment access.",
		Functions: []Function{
			{Name: "get", Kind: EnvGet, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "has", Kind: EnvHas, Arity: Exact(1), Params: []StdType{String}, ReturnType: Bool},
			{Name: "set", Kind: EnvSet, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: Void},
			{Name: "unset", Kind: EnvUnset, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "vars", Kind: EnvVars, Arity: Exact(0), ReturnType: Dict},
			{Name: "cwd", Kind: EnvCwd, Arity: Exact(0), ReturnType: String},
		},
	},
	{
		Path: "std.fs",
		Doc:  "Filesystem helpers.",
		Functions: []Function{
			{Name: "read_text", Kind: FsReadText, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "write_text", Kind: FsWriteText, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: Void},
			{Name: "write_text_atomic", Kind: FsWriteTextAtomic, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: Void},
			{Name: "create_dir", Kind: FsCreateDir, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "ensure_dir", Kind: FsEnsureDir, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "remove", Kind: FsRemove, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "exists", Kind: FsExists, Arity: Exact(1), Params: []StdType{String}, ReturnType: Bool},
			{Name: "list_dir", Kind: FsListDir, Arity: Exact(1), Params: []StdType{String}, ReturnType: List},
			{Name: "walk", Kind: FsWalk, Arity: Exact(1), Params: []StdType{String}, ReturnType: List},
			{Name: "glob", Kind: FsGlob, Arity: Exact(1), Params: []StdType{String}, ReturnType: List},
		},
	},
	{
		Path: "std.path",
		Doc:  "Path manipulation helpers.",
		Functions: []Function{
			{Name: "join", Kind: PathJoin, Arity: Exact(1), Params: []StdType{List}, ReturnType: String},
			{Name: "components", Kind: PathComponents, Arity: Exact(1), Params: []StdType{String}, ReturnType: List},
			{Name: "dirname", Kind: PathDirname, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "basename", Kind: PathBasename, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "extension", Kind: PathExtension, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "normalize", Kind: PathNormalize, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "absolute", Kind: PathAbsolute, Arity: Exact(1), Params: []StdType{String}, ReturnType: String},
			{Name: "relative", Kind: PathRelative, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: String},
			{Name: "separator", Kind: PathSeparator, Arity: Exact(0), ReturnType: String},
		},
	},
	{
		Path: "std.string",
		Doc:  "String search and manipulation helpers.",
		Functions: []Function{
			{Name: "index_of", Kind: StringIndexOf, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: Int},
			{Name: "split", Kind: StringSplit, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: List},
			{Name: "contains", Kind: StringContains, Arity: Exact(2), Params: []StdType{String, String}, ReturnType: Bool},
			{Name: "replace", Kind: StringReplace, Arity: Exact(3), Params: []StdType{String, String, String}, ReturnType: String},
		},
	},
	{
		Path: "std.io",
		Doc:  "Standard input/output helpers.",
		Functions: []Function{
			{Name: "read_line", Kind: IoReadLine, Arity: Exact(0), ReturnType: Any},
			{Name: "read_all", Kind: IoReadAll, Arity: Exact(0), ReturnType: String},
			{Name: "read_bytes", Kind: IoReadBytes, Arity: Exact(0), ReturnType: List},
			{Name: "write", Kind: IoWrite, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "write_err", Kind: IoWriteErr, Arity: Exact(1), Params: []StdType{String}, ReturnType: Void},
			{Name: "flush", Kind: IoFlush, Arity: Exact(0), ReturnType: Void},
		},
	},
	{
		Path: "std.json",
		Doc:  "JSON encode/decode helpers.",
		Functions: []Function{
			{Name: "encode", Kind: JsonEncode, Arity: Exact(1), Params: []StdType{Any}, ReturnType: String},
			{Name: "decode", Kind: JsonDecode, Arity: Exact(1), Params: []StdType{String}, ReturnType: Any},
		},
	},
	{
		Path: "std.yaml",
		Doc:  "YAML encode/decode helpers.",
		Functions: []Function{
			{Name: "encode", Kind: YamlEncode, Arity: Exact(1), Params: []StdType{Any}, ReturnType: String},
			{Name: "decode", Kind: YamlDecode, Arity: Exact(1), Params: []StdType{String}, ReturnType: Any},
		},
	},
	{
		Path: "std.process",
		Doc:  "Child process management.",
		Functions: []Function{
			{Name: "run", Kind: ProcessRun, Arity: Range(1, 2), Params: []StdType{String, List}, ReturnType: Dict},
			{Name: "spawn", Kind: ProcessSpawn, Arity: Range(1, 2), Params: []StdType{String, List}, ReturnType: Int},
			{Name: "wait", Kind: ProcessWait, Arity: Exact(1), Params: []StdType{Int}, ReturnType: Int},
			{Name: "kill", Kind: ProcessKill, Arity: Exact(1), Params: []StdType{Int}, ReturnType: Bool},
			{Name: "read_stdout", Kind: ProcessReadStdout, Arity: Exact(1), Params: []StdType{Int}, ReturnType: String},
			{Name: "read_stderr", Kind: ProcessReadStderr, Arity: Exact(1), Params: []StdType{Int}, ReturnType: String},
			{Name: "write_stdin", Kind: ProcessWriteStdin, Arity: Exact(2), Params: []StdType{Int, String}, ReturnType: Void},
			{Name: "close_stdin", Kind: ProcessCloseStdin, Arity: Exact(1), Params: []StdType{Int}, ReturnType: Void},
		},
	},
	{
		Path: "std.args",
		Doc:  "Command-line argument parsing utilities.",
		Functions: []Function{
			{Name: "all", Kind: ArgsAll, Arity: Exact(0), ReturnType: List},
			{Name: "program", Kind: ArgsProgram, Arity: Exact(0), ReturnType: String},
		},
	},
	{
		Path: "support.cli",
		Doc:  "Support routines for building command-line interfaces.",
		Functions: []Function{
			{Name: "capture", Kind: CliCapture, Arity: Exact(1), Params: []StdType{List}, ReturnType: Dict},
			{Name: "args", Kind: CliArgs, Arity: Exact(0), ReturnType: List},
			{Name: "parse", Kind: CliParse, Arity: Range(1, 2), Params: []StdType{Dict, List}, ReturnType: Dict},
		},
	},
}
