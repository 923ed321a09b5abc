package intrinsics

import (
	"os"
	"strings"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.EnvGet, envGet)
	register(stdlib.EnvSet, envSet)
	register(stdlib.EnvUnset, envUnset)
	register(stdlib.EnvHas, envHas)
	register(stdlib.EnvVars, envVars)
	register(stdlib.EnvCwd, envCwd)
}

func envGet(_ *Context, args []value.Value) (value.Value, error) {
	name, err := wantString(args, 0, "env.get")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(os.Getenv(name)), nil
}

func envSet(_ *Context, args []value.Value) (value.Value, error) {
	name, err := wantString(args, 0, "env.set")
	if err != nil {
		return value.Nil(), err
	}
	val, err := wantString(args, 1, "env.set")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.Setenv(name, val); err != nil {
		return value.Nil(), err
	}
	return value.Void(), nil
}

func envUnset(_ *Context, args []value.Value) (value.Value, error) {
	name, err := wantString(args, 0, "env.unset")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.Unsetenv(name); err != nil {
		return value.Nil(), err
	}
	return value.Void(), nil
}

func envHas(_ *Context, args []value.Value) (value.Value, error) {
	name, err := wantString(args, 0, "env.has")
	if err != nil {
		return value.Nil(), err
	}
	_, ok := os.LookupEnv(name)
	return value.Bool(ok), nil
}

func envVars(_ *Context, _ []value.Value) (value.Value, error) {
	entries := map[string]value.Value{}
	for _, pair := range os.Environ() {
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			entries[pair[:idx]] = value.String(pair[idx+1:])
		}
	}
	return value.NewDict(&value.Dict{Entries: entries}), nil
}

func envCwd(_ *Context, _ []value.Value) (value.Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return value.Nil(), err
	}
	return value.String(dir), nil
}
