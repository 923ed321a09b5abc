package intrinsics

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.FsReadText, fsReadText)
	register(stdlib.FsWriteText, fsWriteText)
	register(stdlib.FsWriteTextAtomic, fsWriteTextAtomic)
	register(stdlib.FsCreateDir, fsCreateDir)
	register(stdlib.FsEnsureDir, fsEnsureDir)
	register(stdlib.FsRemove, fsRemove)
	register(stdlib.FsExists, fsExists)
	register(stdlib.FsListDir, fsListDir)
	register(stdlib.FsWalk, fsWalk)
	register(stdlib.FsGlob, fsGlob)
}

func fsReadText(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.read_text")
	if err != nil {
		return value.Nil(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Nil(), fmt.Errorf("fs.read_text: %w", err)
	}
	return value.String(string(data)), nil
}

func fsWriteText(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.write_text")
	if err != nil {
		return value.Nil(), err
	}
	text, err := wantString(args, 1, "fs.write_text")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return value.Nil(), fmt.Errorf("fs.write_text: %w", err)
	}
	return value.Void(), nil
}

// fsWriteTextAtomic writes through a uniquely named sibling temp file and
// renames it over the target.
func fsWriteTextAtomic(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.write_text_atomic")
	if err != nil {
		return value.Nil(), err
	}
	text, err := wantString(args, 1, "fs.write_text_atomic")
	if err != nil {
		return value.Nil(), err
	}
	temp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(temp, []byte(text), 0o644); err != nil {
		return value.Nil(), fmt.Errorf("fs.write_text_atomic: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		os.Remove(temp)
		return value.Nil(), fmt.Errorf("fs.write_text_atomic: %w", err)
	}
	return value.Void(), nil
}

func fsCreateDir(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.create_dir")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		return value.Nil(), fmt.Errorf("fs.create_dir: %w", err)
	}
	return value.Void(), nil
}

func fsEnsureDir(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.ensure_dir")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return value.Nil(), fmt.Errorf("fs.ensure_dir: %w", err)
	}
	return value.Void(), nil
}

func fsRemove(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.remove")
	if err != nil {
		return value.Nil(), err
	}
	if err := os.RemoveAll(path); err != nil {
		return value.Nil(), fmt.Errorf("fs.remove: %w", err)
	}
	return value.Void(), nil
}

func fsExists(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.exists")
	if err != nil {
		return value.Nil(), err
	}
	_, statErr := os.Stat(path)
	return value.Bool(statErr == nil), nil
}

func fsListDir(_ *Context, args []value.Value) (value.Value, error) {
	path, err := wantString(args, 0, "fs.list_dir")
	if err != nil {
		return value.Nil(), err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return value.Nil(), fmt.Errorf("fs.list_dir: %w", err)
	}
	elements := make([]value.Value, len(entries))
	for i, entry := range entries {
		elements[i] = value.String(entry.Name())
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func fsWalk(_ *Context, args []value.Value) (value.Value, error) {
	root, err := wantString(args, 0, "fs.walk")
	if err != nil {
		return value.Nil(), err
	}
	var elements []value.Value
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			elements = append(elements, value.String(path))
		}
		return nil
	})
	if walkErr != nil {
		return value.Nil(), fmt.Errorf("fs.walk: %w", walkErr)
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

// fsGlob matches files against a doublestar pattern ("src/**/*.tea").
func fsGlob(_ *Context, args []value.Value) (value.Value, error) {
	pattern, err := wantString(args, 0, "fs.glob")
	if err != nil {
		return value.Nil(), err
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return value.Nil(), fmt.Errorf("fs.glob: %w", err)
	}
	elements := make([]value.Value, len(matches))
	for i, match := range matches {
		elements[i] = value.String(match)
	}
	return value.NewList(&value.List{Elements: elements}), nil
}
