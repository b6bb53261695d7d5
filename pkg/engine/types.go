package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a run, of a job within a run, or of a single step attempt.
type Status string

const (
	StatusRunning  Status = "running"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// RunDone is the step name of the terminal log entry delivered to watchers
// when a run reaches a final state.
const RunDone = "__done__"

// LogEntry records one step attempt within a job, or the terminal record of
// the whole run (Step == RunDone, Job empty).
type LogEntry struct {
	Job     string
	Step    string
	Attempt int
	Start   time.Time
	End     time.Time
	Status  Status
	Output  []byte
}

type JobStatusEntry struct {
	Job     string        `json:"job,omitempty"`
	Step    string        `json:"step"`
	Attempt int           `json:"attempt,omitempty"`
	Start   time.Time     `json:"startTime"`
	Elapsed time.Duration `json:"elapsed,omitempty"`
	Status  Status        `json:"status"`
	Output  string        `json:"output,omitempty"`
}

type runState struct {
	ID       uuid.UUID
	Pipeline *pipelineState
	mutex    sync.Mutex
	Open     []*LogEntry
	Closed   []*LogEntry
	jobs     map[string]Status
	terminal *LogEntry
	watcher  chan LogEntry
	watchAll bool
	cancel   context.CancelFunc
}
