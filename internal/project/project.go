// Package project discovers the environment a workflow runs in: the
// repository root, the project name, and the platform's file opener.
package project

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Root returns the working-tree root, taken from version-control metadata.
// Outside a repository it falls back to the current working directory so
// the tool still runs in plain directories.
func Root(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel").Output()
	if err == nil {
		if root := strings.TrimSpace(string(out)); root != "" {
			return root, nil
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return cwd, nil
}

// Name derives the project identifier from the root directory's base name.
func Name(root string) string {
	return filepath.Base(filepath.Clean(root))
}

// OpenCommand returns the argv that opens path with the platform's default
// handler (HTML coverage reports, built docs).
func OpenCommand(path string) []string {
	return openCommandFor(runtime.GOOS, path)
}

func openCommandFor(goos, path string) []string {
	switch goos {
	case "darwin":
		return []string{"open", path}
	case "windows":
		return []string{"cmd", "/c", "start", path}
	default:
		return []string{"xdg-open", path}
	}
}
