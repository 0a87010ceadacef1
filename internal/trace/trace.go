// Package trace records what one invocation actually did: which tasks ran,
// in which order, which steps started, and where a failure landed.
//
// The run log is observational only and must never affect execution; the
// runner drives it through the task.Reporter interface.
package trace

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
)

// EventKind discriminates run-log events. The string values are part of the
// serialized log; do not rename.
type EventKind string

const (
	EventTaskStarted   EventKind = "TaskStarted"
	EventTaskCompleted EventKind = "TaskCompleted"
	EventStepStarted   EventKind = "StepStarted"
	EventStepFailed    EventKind = "StepFailed"
)

// Event is one logical transition. Step and ExitCode are meaningful only
// for step events.
type Event struct {
	Kind     EventKind `json:"kind"`
	Task     string    `json:"task"`
	Step     int       `json:"step,omitempty"`
	Desc     string    `json:"desc,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
}

// RunLog is a concurrency-safe, append-only record of one invocation.
//
// It implements task.Reporter. Events keep arrival order; with the fully
// synchronous runner that order is exactly the execution order, which is
// what tests and the --trace output rely on.
type RunLog struct {
	// RunID distinguishes this invocation in serialized output and log
	// records.
	RunID string

	mu     sync.Mutex
	events []Event
}

// NewRunLog returns an empty log with a fresh run ID.
func NewRunLog() *RunLog {
	return &RunLog{RunID: uuid.NewString()}
}

func (l *RunLog) record(e Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *RunLog) TaskStarted(name string) {
	l.record(Event{Kind: EventTaskStarted, Task: name})
}

func (l *RunLog) TaskCompleted(name string) {
	l.record(Event{Kind: EventTaskCompleted, Task: name})
}

func (l *RunLog) StepStarted(task string, index int, desc string) {
	l.record(Event{Kind: EventStepStarted, Task: task, Step: index, Desc: desc})
}

func (l *RunLog) StepFailed(task string, index int, exitCode int) {
	l.record(Event{Kind: EventStepFailed, Task: task, Step: index, ExitCode: exitCode})
}

// Events returns a point-in-time copy of all recorded events.
func (l *RunLog) Events() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// CompletedTasks returns the names of tasks that completed, in completion
// order.
func (l *RunLog) CompletedTasks() []string {
	var out []string
	for _, e := range l.Events() {
		if e.Kind == EventTaskCompleted {
			out = append(out, e.Task)
		}
	}
	return out
}

type serializedLog struct {
	RunID  string  `json:"run_id"`
	Events []Event `json:"events"`
}

// MarshalJSON serializes the run ID together with the ordered events.
func (l *RunLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(serializedLog{RunID: l.RunID, Events: l.Events()})
}

// WriteFile writes the serialized log to path, replacing any previous run.
func (l *RunLog) WriteFile(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
