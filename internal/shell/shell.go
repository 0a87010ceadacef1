// Package shell runs external commands as task steps.
//
// Each command is an opaque unit: an argv list whose success is a zero exit
// code. Nothing about the tool behind the argv is modeled here.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Command is one external invocation. Argv[0] is the program; Dir, if set,
// is the working directory. Output streams to the parent's stdout/stderr so
// the user watches the tool live, unless Stdout/Stderr are overridden.
type Command struct {
	Argv   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Command for argv, run in dir.
func New(dir string, argv ...string) Command {
	return Command{Argv: argv, Dir: dir}
}

func (c Command) Describe() string { return strings.Join(c.Argv, " ") }

// Run starts the command and blocks until it exits or ctx is cancelled.
//
// The child is placed in its own process group so that cancellation kills
// the whole tree, not just the immediate child; dev tools routinely fork
// (test runners spawning workers, docs servers spawning builders).
func (c Command) Run(ctx context.Context) (int, error) {
	if len(c.Argv) == 0 {
		return -1, errors.New("empty command")
	}

	cmd := exec.Command(c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("starting %q: %w", c.Argv[0], err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			// Negative pid addresses the process group.
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return -1, ctx.Err()
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("running %q: %w", c.Argv[0], err)
	}
}
