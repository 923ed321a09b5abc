package intrinsics

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.IoReadLine, ioReadLine)
	register(stdlib.IoReadAll, ioReadAll)
	register(stdlib.IoReadBytes, ioReadBytes)
	register(stdlib.IoWrite, ioWrite)
	register(stdlib.IoWriteErr, ioWriteErr)
	register(stdlib.IoFlush, ioFlush)
}

// ioReadLine reads one line without its terminator; nil at end of input.
func ioReadLine(ctx *Context, _ []value.Value) (value.Value, error) {
	line, err := ctx.Stdin.ReadString('\n')
	if err == io.EOF && line == "" {
		return value.Nil(), nil
	}
	if err != nil && err != io.EOF {
		return value.Nil(), fmt.Errorf("io.read_line: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	return value.String(line), nil
}

func ioReadAll(ctx *Context, _ []value.Value) (value.Value, error) {
	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return value.Nil(), fmt.Errorf("io.read_all: %w", err)
	}
	return value.String(string(data)), nil
}

func ioReadBytes(ctx *Context, _ []value.Value) (value.Value, error) {
	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return value.Nil(), fmt.Errorf("io.read_bytes: %w", err)
	}
	elements := make([]value.Value, len(data))
	for i, b := range data {
		elements[i] = value.Int(int64(b))
	}
	return value.NewList(&value.List{Elements: elements}), nil
}

func ioWrite(ctx *Context, args []value.Value) (value.Value, error) {
	text, err := wantString(args, 0, "io.write")
	if err != nil {
		return value.Nil(), err
	}
	fmt.Fprint(ctx.Stdout, text)
	return value.Void(), nil
}

func ioWriteErr(ctx *Context, args []value.Value) (value.Value, error) {
	text, err := wantString(args, 0, "io.write_err")
	if err != nil {
		return value.Nil(), err
	}
	fmt.Fprint(ctx.Stderr, text)
	return value.Void(), nil
}

func ioFlush(ctx *Context, _ []value.Value) (value.Value, error) {
	type flusher interface{ Flush() error }
	if f, ok := ctx.Stdout.(flusher); ok {
		if err := f.Flush(); err != nil {
			return value.Nil(), err
		}
	}
	return value.Void(), nil
}
