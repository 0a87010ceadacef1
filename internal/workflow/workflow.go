// Package workflow assembles the builtin task table: the named developer
// chores, their prerequisites, and the external tools each one fans out to.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"toil/internal/archive"
	"toil/internal/config"
	"toil/internal/docs"
	"toil/internal/project"
	"toil/internal/shell"
	"toil/internal/task"
)

// Workflow binds a repository root and its configuration to the builtin
// tasks.
type Workflow struct {
	Root   string
	Cfg    config.Config
	Logger *slog.Logger

	// Stdout receives help output. Defaults to os.Stdout.
	Stdout io.Writer

	// OpenCmd maps an artifact path to the platform opener argv.
	// Defaults to project.OpenCommand.
	OpenCmd func(path string) []string
}

// New returns a Workflow with defaults filled in.
func New(root string, cfg config.Config, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workflow{
		Root:    root,
		Cfg:     cfg,
		Logger:  logger,
		Stdout:  os.Stdout,
		OpenCmd: project.OpenCommand,
	}
}

// Registry builds the static task table for one invocation.
//
// The integration aggregate consumes external metered resources, so nothing
// lists it (or its subsets) as a prerequisite; it only runs when named
// explicitly.
func (w *Workflow) Registry() (*task.Registry, error) {
	reg := task.NewRegistry()

	cmd := func(argv []string, extra ...string) task.Step {
		return shell.New(w.Root, append(append([]string{}, argv...), extra...)...)
	}

	tasks := []task.Task{
		{
			Name:        "help",
			Description: "List all documented tasks",
			Body:        []task.Step{task.StepFunc{Desc: "render task list", Fn: func(ctx context.Context) error { return w.renderHelp(reg) }}},
		},
		{
			Name:        "backup",
			Description: "Archive the working tree into the backup directory",
			Body: []task.Step{task.StepFunc{Desc: "archive working tree", Fn: func(ctx context.Context) error {
				final, err := archive.Backup(ctx, archive.Request{
					Root:            w.Root,
					ExcludePatterns: w.Cfg.Backup.ExcludePatterns,
					DestinationDir:  w.Cfg.Backup.DestinationDir,
					Logger:          w.Logger,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(w.Stdout, final)
				return nil
			}}},
		},
		{
			Name:        "clean",
			Description: "Remove generated artifacts",
			Body:        []task.Step{task.StepFunc{Desc: "remove generated artifacts", Fn: w.clean}},
		},
		{
			Name:        "test",
			Description: "Run the test suite, stopping at the first failure",
			Body:        []task.Step{cmd(w.Cfg.Tools.Test)},
		},
		{
			Name:        "lint",
			Description: "Type-check the main source tree",
			Body:        []task.Step{cmd(w.Cfg.Tools.TypeCheck)},
		},
		{
			Name:        "format",
			Description: "Run formatting hooks",
			Body:        []task.Step{cmd(w.Cfg.Tools.Format)},
		},
		{
			Name:          "coverage",
			Description:   "Run tests under coverage and open the HTML report",
			Prerequisites: []string{"clean"},
			Body: []task.Step{
				cmd(w.Cfg.Tools.Coverage),
				task.StepFunc{Desc: "report coverage total", Fn: w.reportCoverageTotal},
				cmd(w.OpenCmd(filepath.Join(w.Root, "htmlcov", "index.html"))),
			},
		},
		{
			Name:        "testpypi",
			Description: "Build and publish the package to the test index",
			Body: []task.Step{
				cmd(w.Cfg.Tools.Build),
				cmd(w.Cfg.Tools.Publish),
				task.StepFunc{Desc: "remove build output", Fn: func(ctx context.Context) error {
					return os.RemoveAll(filepath.Join(w.Root, "dist"))
				}},
			},
		},
		{
			Name:        "watch-docs",
			Description: "Build the docs and serve them with live reload",
			Body: []task.Step{
				cmd(w.Cfg.Tools.DocsBuild),
				task.StepFunc{Desc: "serve docs with live reload", Fn: w.serveDocs},
			},
		},
	}

	subsets := make([]string, 0, len(w.Cfg.IntegrationSubsets))
	for _, name := range w.Cfg.IntegrationSubsets {
		sub := "integration-" + name
		subsets = append(subsets, sub)
		tasks = append(tasks, task.Task{
			Name: sub,
			Body: []task.Step{cmd(w.Cfg.Tools.Integration, filepath.Join("tests", "integration", "test_"+name+".py"))},
		})
	}
	tasks = append(tasks, task.Task{
		Name:          "integration",
		Description:   "Run every integration-test subset (uses metered resources)",
		Prerequisites: subsets,
	})

	for _, t := range tasks {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// clean removes each configured artifact if present. A second run finds
// nothing to remove and succeeds without touching anything.
func (w *Workflow) clean(ctx context.Context) error {
	removed := 0
	for _, entry := range w.Cfg.Clean {
		matches, err := filepath.Glob(filepath.Join(w.Root, entry))
		if err != nil {
			return fmt.Errorf("bad clean pattern %q: %w", entry, err)
		}
		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				return fmt.Errorf("removing %q: %w", m, err)
			}
			w.Logger.Debug("removed artifact", "path", m)
			removed++
		}
	}
	w.Logger.Info("clean finished", "removed", removed)
	return nil
}

// serveDocs blocks serving the built site until the invocation is
// cancelled. Source changes rebuild via the configured docs tool.
func (w *Workflow) serveDocs(ctx context.Context) error {
	srv := &docs.Server{
		SiteDir:   filepath.Join(w.Root, w.Cfg.Docs.SiteDir),
		SourceDir: filepath.Join(w.Root, w.Cfg.Docs.SourceDir),
		Addr:      w.Cfg.Docs.Addr,
		Logger:    w.Logger,
		Rebuild: func(ctx context.Context) error {
			code, err := shell.New(w.Root, w.Cfg.Tools.DocsBuild...).Run(ctx)
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("docs build exited with code %d", code)
			}
			return nil
		},
	}
	return srv.Run(ctx)
}
