package intrinsics

import (
	"fmt"
	"strings"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.Print, printLine)
	register(stdlib.Println, printLine)
	register(stdlib.ToString, toString)
	register(stdlib.TypeOf, typeOf)
	register(stdlib.Length, length)
	register(stdlib.Exit, exitProcess)
	register(stdlib.Append, appendElement)
	register(stdlib.Delete, deleteKey)
	register(stdlib.Clear, clearDict)
	register(stdlib.Min, minValue)
	register(stdlib.Max, maxValue)
	register(stdlib.UtilClampInt, clampInt)
	register(stdlib.DictKeys, dictKeys)
	register(stdlib.DebugProgram, debugProgram)
	register(stdlib.ArgsAll, argsAll)
	register(stdlib.ArgsProgram, argsProgram)
	register(stdlib.CliArgs, argsAll)
	register(stdlib.CliCapture, cliCapture)
	register(stdlib.CliParse, cliParse)
}

func printLine(ctx *Context, args []value.Value) (value.Value, error) {
	fmt.Fprintln(ctx.Stdout, args[0].Inspect())
	return value.Void(), nil
}

func toString(_ *Context, args []value.Value) (value.Value, error) {
	return value.String(args[0].Inspect()), nil
}

func typeOf(_ *Context, args []value.Value) (value.Value, error) {
	return value.String(args[0].TypeName()), nil
}

func length(_ *Context, args []value.Value) (value.Value, error) {
	switch args[0].Kind {
	case value.StringKind:
		return value.Int(int64(len(args[0].AsString()))), nil
	case value.ListKind:
		return value.Int(int64(len(args[0].AsList().Elements))), nil
	case value.DictKind:
		return value.Int(int64(len(args[0].AsDict().Entries))), nil
	default:
		return value.Nil(), fmt.Errorf("len: cannot measure %s", args[0].TypeName())
	}
}

func exitProcess(_ *Context, args []value.Value) (value.Value, error) {
	code, err := wantInt(args, 0, "exit")
	if err != nil {
		return value.Nil(), err
	}
	return value.Void(), &ExitRequest{Code: int(code)}
}

// appendElement mutates the shared list; every holder observes the new
// element.
func appendElement(_ *Context, args []value.Value) (value.Value, error) {
	list, err := wantList(args, 0, "append")
	if err != nil {
		return value.Nil(), err
	}
	list.Elements = append(list.Elements, args[1])
	return args[0], nil
}

func deleteKey(_ *Context, args []value.Value) (value.Value, error) {
	dict, err := wantDict(args, 0, "delete")
	if err != nil {
		return value.Nil(), err
	}
	key, err := wantString(args, 1, "delete")
	if err != nil {
		return value.Nil(), err
	}
	delete(dict.Entries, key)
	return args[0], nil
}

func clearDict(_ *Context, args []value.Value) (value.Value, error) {
	dict, err := wantDict(args, 0, "clear")
	if err != nil {
		return value.Nil(), err
	}
	for key := range dict.Entries {
		delete(dict.Entries, key)
	}
	return args[0], nil
}

func minValue(_ *Context, args []value.Value) (value.Value, error) {
	return pickOrdered(args, "min", true)
}

func maxValue(_ *Context, args []value.Value) (value.Value, error) {
	return pickOrdered(args, "max", false)
}

func pickOrdered(args []value.Value, fn string, wantLess bool) (value.Value, error) {
	a, b := args[0], args[1]
	var less bool
	switch {
	case a.Kind == value.IntKind && b.Kind == value.IntKind:
		less = a.AsInt() < b.AsInt()
	case a.Kind == value.FloatKind && b.Kind == value.FloatKind:
		less = a.AsFloat() < b.AsFloat()
	case a.Kind == value.StringKind && b.Kind == value.StringKind:
		less = a.AsString() < b.AsString()
	default:
		return value.Nil(), fmt.Errorf("%s: cannot order %s and %s", fn, a.TypeName(), b.TypeName())
	}
	if less == wantLess {
		return a, nil
	}
	return b, nil
}

func clampInt(_ *Context, args []value.Value) (value.Value, error) {
	v, err := wantInt(args, 0, "clamp_int")
	if err != nil {
		return value.Nil(), err
	}
	low, err := wantInt(args, 1, "clamp_int")
	if err != nil {
		return value.Nil(), err
	}
	high, err := wantInt(args, 2, "clamp_int")
	if err != nil {
		return value.Nil(), err
	}
	if v < low {
		v = low
	}
	if v > high {
		v = high
	}
	return value.Int(v), nil
}

// dictKeys backs dict iteration: a key list that is stable for the span of
// one loop.
func dictKeys(_ *Context, args []value.Value) (value.Value, error) {
	dict, err := wantDict(args, 0, "keys")
	if err != nil {
		return value.Nil(), err
	}
	keys := dict.SortedKeys()
	elements := make([]value.Value, len(keys))
	for i, key := range keys {
		elements[i] = value.String(key)
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func debugProgram(ctx *Context, _ []value.Value) (value.Value, error) {
	if ctx.ProgramDump == nil {
		return value.String(""), nil
	}
	return value.String(ctx.ProgramDump()), nil
}

func argsAll(ctx *Context, _ []value.Value) (value.Value, error) {
	elements := make([]value.Value, len(ctx.Args))
	for i, arg := range ctx.Args {
		elements[i] = value.String(arg)
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func argsProgram(ctx *Context, _ []value.Value) (value.Value, error) {
	return value.String(ctx.ProgramName), nil
}

// cliCapture splits an argument list into flags and positionals.
func cliCapture(_ *Context, args []value.Value) (value.Value, error) {
	list, err := wantList(args, 0, "capture")
	if err != nil {
		return value.Nil(), err
	}
	flags := map[string]value.Value{}
	var positional []value.Value
	for _, arg := range list.Elements {
		raw := arg.AsString()
		if len(raw) > 2 && raw[:2] == "--" {
			body := raw[2:]
			if idx := strings.IndexByte(body, '='); idx >= 0 {
				flags[body[:idx]] = value.String(body[idx+1:])
			} else {
				flags[body] = value.Bool(true)
			}
			continue
		}
		positional = append(positional, arg)
	}
	return value.NewDict(&value.Dict{Entries: map[string]value.Value{
		"flags":      value.NewDict(&value.Dict{Entries: flags}),
		"positional": value.NewList(&value.List{Elements: positional}),
	}}), nil
}

// cliParse merges parsed flags over a defaults dict.
func cliParse(ctx *Context, args []value.Value) (value.Value, error) {
	defaults, err := wantDict(args, 0, "parse")
	if err != nil {
		return value.Nil(), err
	}
	var input value.Value
	if len(args) > 1 {
		input = args[1]
	} else {
		input, _ = argsAll(ctx, nil)
	}
	captured, err := cliCapture(ctx, []value.Value{input})
	if err != nil {
		return value.Nil(), err
	}
	flags := captured.AsDict().Entries["flags"].AsDict()

	merged := make(map[string]value.Value, len(defaults.Entries))
	for key, entry := range defaults.Entries {
		merged[key] = entry
	}
	for key, flag := range flags.Entries {
		merged[key] = flag
	}
	return value.NewDict(&value.Dict{Entries: merged}), nil
}
