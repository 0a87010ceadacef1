// Black-box tests driving the full CLI surface the way a shell would.
package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	icl "toil/internal/cli"
)

// newRepo creates an isolated working tree and makes it the process CWD, so
// root discovery falls back to it rather than finding an enclosing repo.
func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "toil.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	res := icl.Run(context.Background(), args, &stdout, &stderr)
	return res.ExitCode, stdout.String(), stderr.String()
}

func TestHelpListsTasks(t *testing.T) {
	newRepo(t)

	code, out, _ := run(t, "help")
	if code != icl.ExitSuccess {
		t.Fatalf("exit %d, want %d", code, icl.ExitSuccess)
	}
	for _, name := range []string{"backup", "clean", "coverage", "test", "lint", "format", "integration", "testpypi", "watch-docs"} {
		if !strings.Contains(out, name) {
			t.Fatalf("help output missing %q:\n%s", name, out)
		}
	}
}

func TestNoArgsRunsHelp(t *testing.T) {
	newRepo(t)
	code, out, _ := run(t)
	if code != icl.ExitSuccess || !strings.Contains(out, "backup") {
		t.Fatalf("bare invocation should list tasks, exit %d:\n%s", code, out)
	}
}

func TestUnknownTask(t *testing.T) {
	newRepo(t)
	code, _, errOut := run(t, "nonexistent")
	if code != icl.ExitInvalidInvocation {
		t.Fatalf("exit %d, want %d", code, icl.ExitInvalidInvocation)
	}
	if !strings.Contains(errOut, "unknown task") {
		t.Fatalf("stderr should name the failure: %q", errOut)
	}
}

func TestTaskSuccessAndFailureExitCodes(t *testing.T) {
	dir := newRepo(t)
	writeConfig(t, dir, "tools:\n  test: [\"sh\", \"-c\", \"echo ran > marker\"]\n  type_check: [\"false\"]\n")

	code, _, _ := run(t, "test")
	if code != icl.ExitSuccess {
		t.Fatalf("test task: exit %d, want 0", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Fatalf("step did not run in the repo root: %v", err)
	}

	code, _, errOut := run(t, "lint")
	if code != icl.ExitTaskFailure {
		t.Fatalf("lint task: exit %d, want %d", code, icl.ExitTaskFailure)
	}
	if !strings.Contains(errOut, "lint") {
		t.Fatalf("stderr should name the failing task: %q", errOut)
	}
}

func TestMultipleTasksStopAtFirstFailure(t *testing.T) {
	dir := newRepo(t)
	writeConfig(t, dir, "tools:\n  test: [\"false\"]\n  format: [\"sh\", \"-c\", \"echo formatted > formatted\"]\n")

	code, _, _ := run(t, "test", "format")
	if code != icl.ExitTaskFailure {
		t.Fatalf("exit %d, want %d", code, icl.ExitTaskFailure)
	}
	if _, err := os.Stat(filepath.Join(dir, "formatted")); !os.IsNotExist(err) {
		t.Fatalf("format must not run after test fails")
	}
}

func TestBackupEndToEnd(t *testing.T) {
	dir := newRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "a.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := run(t, "backup")
	if code != icl.ExitSuccess {
		t.Fatalf("exit %d, want 0", code)
	}

	printed := strings.TrimSpace(out)
	if !strings.HasSuffix(printed, ".tar.gz") {
		t.Fatalf("backup should print the archive path, got %q", printed)
	}
	if _, err := os.Stat(printed); err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if filepath.Dir(printed) != filepath.Join(dir, ".backups") {
		t.Fatalf("archive not in backup directory: %q", printed)
	}
}

func TestCleanTwiceIsIdempotent(t *testing.T) {
	dir := newRepo(t)
	if err := os.MkdirAll(filepath.Join(dir, "htmlcov"), 0o755); err != nil {
		t.Fatal(err)
	}

	if code, _, _ := run(t, "clean"); code != icl.ExitSuccess {
		t.Fatalf("first clean failed")
	}
	if code, _, errOut := run(t, "clean"); code != icl.ExitSuccess {
		t.Fatalf("second clean failed: %s", errOut)
	}
}

func TestTraceFlagWritesRunLog(t *testing.T) {
	dir := newRepo(t)
	writeConfig(t, dir, "tools:\n  test: [\"true\"]\n")
	tracePath := filepath.Join(dir, "run.json")

	code, _, _ := run(t, "--trace", tracePath, "test")
	if code != icl.ExitSuccess {
		t.Fatalf("exit %d, want 0", code)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("run log missing: %v", err)
	}
	var decoded struct {
		RunID  string `json:"run_id"`
		Events []struct {
			Kind string `json:"kind"`
			Task string `json:"task"`
		} `json:"events"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("run log is not JSON: %v", err)
	}
	if decoded.RunID == "" || len(decoded.Events) == 0 {
		t.Fatalf("run log is empty: %+v", decoded)
	}
	last := decoded.Events[len(decoded.Events)-1]
	if last.Kind != "TaskCompleted" || last.Task != "test" {
		t.Fatalf("unexpected final event: %+v", last)
	}
}

func TestMalformedConfig(t *testing.T) {
	dir := newRepo(t)
	writeConfig(t, dir, "tools: [broken")

	code, _, _ := run(t, "help")
	if code != icl.ExitConfigError {
		t.Fatalf("exit %d, want %d", code, icl.ExitConfigError)
	}
}

func TestUnknownFlag(t *testing.T) {
	newRepo(t)
	code, _, _ := run(t, "--definitely-not-a-flag")
	if code != icl.ExitInvalidInvocation {
		t.Fatalf("exit %d, want %d", code, icl.ExitInvalidInvocation)
	}
}
