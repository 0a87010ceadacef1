package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRunLog_OrderPreserved(t *testing.T) {
	l := NewRunLog()
	l.TaskStarted("d")
	l.StepStarted("d", 0, "echo d")
	l.TaskCompleted("d")
	l.TaskStarted("b")
	l.TaskCompleted("b")

	events := l.Events()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	if events[0].Kind != EventTaskStarted || events[0].Task != "d" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}

	completed := l.CompletedTasks()
	if len(completed) != 2 || completed[0] != "d" || completed[1] != "b" {
		t.Fatalf("unexpected completion order: %v", completed)
	}
}

func TestRunLog_FreshRunID(t *testing.T) {
	a, b := NewRunLog(), NewRunLog()
	if a.RunID == "" || a.RunID == b.RunID {
		t.Fatalf("expected distinct non-empty run IDs, got %q and %q", a.RunID, b.RunID)
	}
}

func TestRunLog_WriteFile(t *testing.T) {
	l := NewRunLog()
	l.TaskStarted("test")
	l.StepFailed("test", 0, 2)

	path := filepath.Join(t.TempDir(), "run.json")
	if err := l.WriteFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded struct {
		RunID  string  `json:"run_id"`
		Events []Event `json:"events"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.RunID != l.RunID {
		t.Fatalf("run ID mismatch: %q vs %q", decoded.RunID, l.RunID)
	}
	if len(decoded.Events) != 2 || decoded.Events[1].Kind != EventStepFailed || decoded.Events[1].ExitCode != 2 {
		t.Fatalf("unexpected events: %+v", decoded.Events)
	}
}

func TestRunLog_NilSafe(t *testing.T) {
	var l *RunLog
	l.TaskStarted("x") // must not panic
	if got := l.Events(); got != nil {
		t.Fatalf("expected nil events, got %v", got)
	}
}
