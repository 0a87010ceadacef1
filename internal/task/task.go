// Package task defines the task registry and the runner that executes
// registered tasks in prerequisite order.
//
// A task is a named, possibly prerequisite-gated unit of work composed of
// ordered steps. Steps are opaque: the runner knows only how to invoke one
// and how to interpret its exit code. Dependency resolution is a depth-first
// traversal with an explicit completed set and an explicit in-progress chain;
// the graphs involved are small and static, so no topological sort or
// parallel dispatch is needed. Determinism (declared order) matters more
// than throughput.
package task

import "context"

// Step is one atomic unit of a task body, typically one external command.
//
// Run blocks until the step finishes and returns its exit code. A non-nil
// error carries the underlying cause when one is available (an in-process
// step failing, a command that could not be started). A step has succeeded
// iff the exit code is zero and the error is nil.
type Step interface {
	// Describe returns a short human-readable rendering of the step,
	// used in logs and failure messages.
	Describe() string

	Run(ctx context.Context) (exitCode int, err error)
}

// Task is a declarative definition of work.
//
// Prerequisites are task names that must complete successfully, in declared
// order, before Body runs. Description is help text only and never affects
// execution.
type Task struct {
	Name          string
	Description   string
	Prerequisites []string
	Body          []Step
}

// Documented reports whether the task should appear in help listings.
func (t Task) Documented() bool { return t.Description != "" }

// StepFunc adapts a plain function into a Step. It is used for bodies that
// are implemented in-process (the backup archiver, conditional cleanup)
// rather than as external commands.
type StepFunc struct {
	Desc string
	Fn   func(ctx context.Context) error
}

func (s StepFunc) Describe() string { return s.Desc }

// Run reports exit code 0 on success and 1 on error, mirroring how an
// external command would signal the same outcome.
func (s StepFunc) Run(ctx context.Context) (int, error) {
	if err := s.Fn(ctx); err != nil {
		return 1, err
	}
	return 0, nil
}
