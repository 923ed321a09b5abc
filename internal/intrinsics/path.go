package intrinsics

import (
	"path/filepath"
	"strings"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.PathJoin, pathJoin)
	register(stdlib.PathComponents, pathComponents)
	register(stdlib.PathDirname, pathDirname)
	register(stdlib.PathBasename, pathBasename)
	register(stdlib.PathExtension, pathExtension)
	register(stdlib.PathNormalize, pathNormalize)
	register(stdlib.PathAbsolute, pathAbsolute)
	register(stdlib.PathRelative, pathRelative)
	register(stdlib.PathSeparator, pathSeparator)
}

func pathJoin(_ *Context, args []value.Value) (value.Value, error) {
	list, err := wantList(args, 0, "path.join")
	if err != nil {
		return value.Nil(), err
	}
	parts := make([]string, len(list.Elements))
	for i, element := range list.Elements {
		parts[i] = element.AsString()
	}
	return value.String(filepath.Join(parts...)), nil
}

func pathComponents(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.components")
	if err != nil {
		return value.Nil(), err
	}
	var elements []value.Value
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if part != "" && part != "." {
			elements = append(elements, value.String(part))
		}
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func pathDirname(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.dirname")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(filepath.Dir(path)), nil
}

func pathBasename(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.basename")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(filepath.Base(path)), nil
}

func pathExtension(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.extension")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(strings.TrimPrefix(filepath.Ext(path), ".")), nil
}

func pathNormalize(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.normalize")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(filepath.Clean(path)), nil
}

func pathAbsolute(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "path.absolute")
	if err != nil {
		return value.Nil(), err
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return value.Nil(), err
	}
	return value.String(absolute), nil
}

func pathRelative(_ *Context, args []value.Value) (value.Value, error) {
	base, err := wantString(args, 0, "path.relative")
	if err != nil {
		return value.Nil(), err
	}
	target, err := wantString(args, 1, "path.relative")
	if err != nil {
		return value.Nil(), err
	}
	relative, err := filepath.Rel(base, target)
	if err != nil {
		return value.Nil(), err
	}
	return value.String(relative), nil
}

func pathSeparator(_ *Context, _ []value.Value) (value.Value, error) {
	return value.String(string(filepath.Separator)), nil
}
