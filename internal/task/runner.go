package task

import (
	"context"
	"log/slog"
)

// Reporter observes task and step transitions during one Run call.
//
// The runner drives a Reporter instead of logging directly so that the
// execution order is observable in tests and in the run log without coupling
// this package to a trace format. Implementations must not influence
// execution.
type Reporter interface {
	TaskStarted(name string)
	TaskCompleted(name string)
	StepStarted(task string, index int, desc string)
	StepFailed(task string, index int, exitCode int)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) TaskStarted(string) {}

func (NopReporter) TaskCompleted(string) {}

func (NopReporter) StepStarted(string, int, string) {}

func (NopReporter) StepFailed(string, int, int) {}

// Runner resolves a requested task name to an execution order and runs it.
//
// Run works in two passes. The first pass is purely structural: it walks the
// prerequisite graph reachable from the requested name and rejects unknown
// names and cycles, so a malformed graph fails before any step executes. The
// second pass is the depth-first execution walk, threading two pieces of
// state owned by the Run call rather than the Runner (a Runner is stateless
// between invocations):
//
//   - seen: tasks completed in this invocation. A task reachable via several
//     paths (diamond shape) runs exactly once.
//   - chain: the in-progress resolution path, reported on cycle errors.
//
// Execution is fully synchronous: every prerequisite completes, in declared
// order, strictly before the dependent task's own body begins. A step's
// non-zero exit aborts the whole Run; completed siblings are not rolled back.
type Runner struct {
	Registry *Registry
	Reporter Reporter
	Logger   *slog.Logger
}

// NewRunner returns a Runner over reg. A nil reporter defaults to
// NopReporter; a nil logger discards log output.
func NewRunner(reg *Registry, rep Reporter, logger *slog.Logger) *Runner {
	if rep == nil {
		rep = NopReporter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{Registry: reg, Reporter: rep, Logger: logger}
}

// Run executes the named task and, first, all of its transitive
// prerequisites.
func (r *Runner) Run(ctx context.Context, name string) error {
	if err := r.resolve(name, nil); err != nil {
		return err
	}
	seen := make(map[string]bool)
	return r.run(ctx, name, seen)
}

// resolve validates the graph reachable from name without executing
// anything: every referenced task must be registered, and no prerequisite
// chain may revisit a task already on the in-progress chain.
func (r *Runner) resolve(name string, chain []string) error {
	t, err := r.Registry.Lookup(name)
	if err != nil {
		return err
	}
	for _, on := range chain {
		if on == name {
			return &CyclicDependencyError{Chain: append(append([]string{}, chain...), name)}
		}
	}
	chain = append(chain, name)
	for _, pre := range t.Prerequisites {
		if err := r.resolve(pre, chain); err != nil {
			return err
		}
	}
	return nil
}

// run executes name's prerequisites depth-first in declared order, then its
// own body. The graph has already been validated, so lookups cannot fail.
func (r *Runner) run(ctx context.Context, name string, seen map[string]bool) error {
	t, err := r.Registry.Lookup(name)
	if err != nil {
		return err
	}

	for _, pre := range t.Prerequisites {
		if seen[pre] {
			continue
		}
		if err := r.run(ctx, pre, seen); err != nil {
			return err
		}
	}

	r.Reporter.TaskStarted(name)
	r.Logger.Info("task started", "task", name, "steps", len(t.Body))

	for i, step := range t.Body {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Reporter.StepStarted(name, i, step.Describe())
		r.Logger.Debug("step started", "task", name, "step", i, "cmd", step.Describe())

		code, err := step.Run(ctx)
		if err != nil || code != 0 {
			if err != nil && code == 0 {
				code = -1
			}
			r.Reporter.StepFailed(name, i, code)
			r.Logger.Error("step failed", "task", name, "step", i, "exit_code", code)
			return &TaskFailedError{Task: name, StepIndex: i, ExitCode: code, Step: step.Describe(), Err: err}
		}
	}

	seen[name] = true
	r.Reporter.TaskCompleted(name)
	r.Logger.Info("task completed", "task", name)
	return nil
}
