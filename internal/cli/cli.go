// Package cli is the command-line surface: flag parsing, environment
// discovery, task dispatch and exit-code mapping.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"toil/internal/config"
	"toil/internal/logging"
	"toil/internal/project"
	"toil/internal/task"
	"toil/internal/trace"
	"toil/internal/workflow"
)

// Result is what one invocation produced, for main and for black-box tests.
type Result struct {
	ExitCode int
}

type flags struct {
	chdir    string
	logLevel string
	logFile  string
	trace    string
}

// NewRootCommand builds the cobra command tree. Task names are positional
// arguments (`toil backup`, `toil clean test`); with no arguments the help
// task runs.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "toil [task...]",
		Short:         "Run named developer-workflow tasks",
		Long:          "toil resolves named tasks and their prerequisites and runs them in dependency order.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"help"}
			}
			return runTasks(cmd.Context(), f, args, stdout, stderr)
		},
	}

	root.PersistentFlags().StringVar(&f.chdir, "chdir", "", "change to this directory before resolving the repository root")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&f.logFile, "log-file", "", "also write JSON log records to this file")
	root.PersistentFlags().StringVar(&f.trace, "trace", "", "write the run log (executed tasks and steps) to this file as JSON")

	// `toil help` must reach the help task, not cobra's generated help.
	root.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "List all documented tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasks(cmd.Context(), f, []string{"help"}, stdout, stderr)
		},
	})
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &invocationError{err: err}
	})
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root
}

func runTasks(ctx context.Context, f flags, names []string, stdout, stderr io.Writer) error {
	if f.chdir != "" {
		if err := os.Chdir(f.chdir); err != nil {
			return &configError{err: fmt.Errorf("entering %q: %w", f.chdir, err)}
		}
	}

	root, err := project.Root(ctx)
	if err != nil {
		return &configError{err: err}
	}

	cfg, err := config.Load(root)
	if err != nil {
		return &configError{err: err}
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Stderr: stderr})
	if err != nil {
		return &configError{err: err}
	}
	defer logger.Close()

	wf := workflow.New(root, cfg, logger.Logger)
	wf.Stdout = stdout
	reg, err := wf.Registry()
	if err != nil {
		return &configError{err: err}
	}

	runLog := trace.NewRunLog()
	runner := task.NewRunner(reg, runLog, logger.With("run_id", runLog.RunID))

	var runErr error
	for _, name := range names {
		if runErr = runner.Run(ctx, name); runErr != nil {
			break
		}
	}

	if f.trace != "" {
		if err := runLog.WriteFile(f.trace); err != nil {
			logger.Error("writing run log", "path", f.trace, "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}

// Run executes one invocation and returns its Result. Errors are printed to
// stderr here so main stays a thin boundary.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) Result {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "toil:", err)
	}
	return Result{ExitCode: exitCode(err)}
}
