package task

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for the registry and runner error taxonomy. Callers match
// with errors.Is; the concrete types below carry the context needed to
// reproduce a failure (task name, step index, exit code).
var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("duplicate task")
	ErrCyclicDep     = errors.New("cyclic dependency")
	ErrTaskFailed    = errors.New("task failed")
)

// UnknownTaskError reports a lookup of a name that was never registered.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task: %q", e.Name)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// DuplicateTaskError reports a second registration under an existing name.
type DuplicateTaskError struct {
	Name string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("duplicate task: %q", e.Name)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrDuplicateTask }

// CyclicDependencyError reports a prerequisite chain that revisits a task
// already being resolved. Chain is the in-progress resolution path ending at
// the repeated task, e.g. ["a", "b", "a"].
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Chain, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDep }

// TaskFailedError reports a body step that exited non-zero or could not be
// invoked. StepIndex is zero-based within the failing task's body. ExitCode
// is the step's exit status, or -1 when the step never produced one.
type TaskFailedError struct {
	Task      string
	StepIndex int
	ExitCode  int
	Step      string
	Err       error
}

func (e *TaskFailedError) Error() string {
	msg := fmt.Sprintf("task %q: step %d (%s) failed with exit code %d", e.Task, e.StepIndex, e.Step, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TaskFailedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrTaskFailed
}

// Is lets errors.Is(err, ErrTaskFailed) hold even when Err wraps a cause.
func (e *TaskFailedError) Is(target error) bool { return target == ErrTaskFailed }
