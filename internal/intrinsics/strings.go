package intrinsics

import (
	"strings"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.StringIndexOf, stringIndexOf)
	register(stdlib.StringSplit, stringSplit)
	register(stdlib.StringContains, stringContains)
	register(stdlib.StringReplace, stringReplace)
}

func stringIndexOf(_ *Context, args []value.Value) (value.Value, error) {
	haystack, err := wantString(args, 0, "string.index_of")
	if err != nil {
		return value.Nil(), err
	}
	needle, err := wantString(args, 1, "string.index_of")
	if err != nil {
		return value.Nil(), err
	}
	return value.Int(int64(strings.Index(haystack, needle))), nil
}

func stringSplit(_ *Context, args []value.Value) (value.Value, error) {
	input, err := wantString(args, 0, "string.split")
	if err != nil {
		return value.Nil(), err
	}
	separator, err := wantString(args, 1, "string.split")
	if err != nil {
		return value.Nil(), err
	}
	parts := strings.Split(input, separator)
	elements := make([]value.Value, len(parts))
	for i, part := range parts {
		elements[i] = value.String(part)
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func stringContains(_ *Context, args []value.Value) (value.Value, error) {
	haystack, err := wantString(args, 0, "string.contains")
	if err != nil {
		return value.Nil(), err
	}
	needle, err := wantString(args, 1, "string.contains")
	if err != nil {
		return value.Nil(), err
	}
	return value.Bool(strings.Contains(haystack, needle)), nil
}

func stringReplace(_ *Context, args []value.Value) (value.Value, error) {
	input, err := wantString(args, 0, "string.replace")
	if err != nil {
		return value.Nil(), err
	}
	from, err := wantString(args, 1, "string.replace")
	if err != nil {
		return value.Nil(), err
	}
	to, err := wantString(args, 2, "string.replace")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(strings.ReplaceAll(input, from, to)), nil
}
