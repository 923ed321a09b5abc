package intrinsics

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"

	"github.com/funvibe/tea/internal/stdlib"
	"github.com/funvibe/tea/internal/value"
)

func init() {
	register(stdlib.ProcessRun, processRun)
	register(stdlib.ProcessSpawn, processSpawn)
	register(stdlib.ProcessWait, processWait)
	register(stdlib.ProcessKill, processKill)
	register(stdlib.ProcessReadStdout, processReadStdout)
	register(stdlib.ProcessReadStderr, processReadStderr)
	register(stdlib.ProcessWriteStdin, processWriteStdin)
	register(stdlib.ProcessCloseStdin, processCloseStdin)
}

// process is one spawned child tracked by its handle.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	done   bool
	status int
}

func commandFromArgs(args []value.Value, fn string) (*exec.Cmd, error) {
	program, err := wantString(args, 0, fn)
	if err != nil {
		return nil, err
	}
	var extra []string
	if len(args) > 1 {
		list, err := wantList(args, 1, fn)
		if err != nil {
			return nil, err
		}
		for _, element := range list.Elements {
			extra = append(extra, element.AsString())
		}
	}
	return exec.Command(program, extra...), nil
}

// processRun executes to completion and returns {stdout, stderr, status}.
func processRun(_ *Context, args []value.Value) (value.Value, error) {
	cmd, err := commandFromArgs(args, "process.run")
	if err != nil {
		return value.Nil(), err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	status := 0
	if runErr := cmd.Run(); runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return value.Nil(), fmt.Errorf("process.run: %w", runErr)
		}
		status = exitErr.ExitCode()
	}
	return value.NewDict(&value.Dict{Entries: map[string]value.Value{
		"stdout": value.String(stdout.String()),
		"stderr": value.String(stderr.String()),
		"status": value.Int(int64(status)),
	}}), nil
}

func processSpawn(ctx *Context, args []value.Value) (value.Value, error) {
	cmd, err := commandFromArgs(args, "process.spawn")
	if err != nil {
		return value.Nil(), err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return value.Nil(), fmt.Errorf("process.spawn: %w", err)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return value.Nil(), fmt.Errorf("process.spawn: %w", err)
	}

	ctx.nextProc++
	handle := ctx.nextProc
	ctx.processes[handle] = &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: &stdout,
		stderr: &stderr,
	}
	return value.Int(handle), nil
}

func (ctx *Context) lookupProcess(args []value.Value, fn string) (*process, error) {
	handle, err := wantInt(args, 0, fn)
	if err != nil {
		return nil, err
	}
	proc, ok := ctx.processes[handle]
	if !ok {
		return nil, fmt.Errorf("%s: unknown process handle %d", fn, handle)
	}
	return proc, nil
}

func processWait(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.wait")
	if err != nil {
		return value.Nil(), err
	}
	if !proc.done {
		if waitErr := proc.cmd.Wait(); waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				proc.status = exitErr.ExitCode()
			} else {
				return value.Nil(), fmt.Errorf("process.wait: %w", waitErr)
			}
		}
		proc.done = true
	}
	return value.Int(int64(proc.status)), nil
}

func processKill(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.kill")
	if err != nil {
		return value.Nil(), err
	}
	if proc.done || proc.cmd.Process == nil {
		return value.Bool(false), nil
	}
	return value.Bool(proc.cmd.Process.Kill() == nil), nil
}

func processReadStdout(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.read_stdout")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(proc.stdout.String()), nil
}

func processReadStderr(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.read_stderr")
	if err != nil {
		return value.Nil(), err
	}
	return value.String(proc.stderr.String()), nil
}

func processWriteStdin(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.write_stdin")
	if err != nil {
		return value.Nil(), err
	}
	text, err := wantString(args, 1, "process.write_stdin")
	if err != nil {
		return value.Nil(), err
	}
	if _, err := io.WriteString(proc.stdin, text); err != nil {
		return value.Nil(), fmt.Errorf("process.write_stdin: %w", err)
	}
	return value.Void(), nil
}

func processCloseStdin(ctx *Context, args []value.Value) (value.Value, error) {
	proc, err := ctx.lookupProcess(args, "process.close_stdin")
	if err != nil {
		return value.Nil(), err
	}
	if err := proc.stdin.Close(); err != nil {
		return value.Nil(), fmt.Errorf("process.close_stdin: %w", err)
	}
	return value.Void(), nil
}
