package cli

import (
	"errors"

	"toil/internal/archive"
	"toil/internal/task"
)

// Semantic exit codes. The process exits non-zero iff any task in the
// resolved chain fails; the code distinguishes why for scripts wrapping the
// tool.
const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// invocationError marks a malformed command line (bad flag, bad value).
type invocationError struct {
	err error
}

func (e *invocationError) Error() string { return e.err.Error() }

func (e *invocationError) Unwrap() error { return e.err }

// configError marks failures in loading configuration or assembling the
// task table, before anything runs.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }

func (e *configError) Unwrap() error { return e.err }

// exitCode maps an error from one invocation to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, task.ErrUnknownTask), isInvocationError(err):
		return ExitInvalidInvocation
	case errors.Is(err, task.ErrCyclicDep), errors.Is(err, task.ErrDuplicateTask):
		return ExitConfigError
	case isConfigError(err):
		return ExitConfigError
	case errors.Is(err, task.ErrTaskFailed),
		errors.Is(err, archive.ErrArchiveWrite),
		errors.Is(err, archive.ErrDestination):
		return ExitTaskFailure
	default:
		return ExitInternalError
	}
}

func isInvocationError(err error) bool {
	var ie *invocationError
	return errors.As(err, &ie)
}

func isConfigError(err error) bool {
	var ce *configError
	return errors.As(err, &ce)
}
