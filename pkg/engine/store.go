package engine

//go:generate mockgen -source store.go -destination ./mock/store.go

import "github.com/google/uuid"

// RunLogInfo is the stored record of one run: its workflow, final status
// (empty while the run is open) and the step log entries written so far.
type RunLogInfo struct {
	ID       uuid.UUID
	Workflow string
	Status   Status
	Logs     []*LogEntry
}

type RunStore interface {
	Update(id uuid.UUID, workflow string, logs []*LogEntry) error
	GetRunningRunLogs(id uuid.UUID) (*RunLogInfo, error)
	GetCompletedRunLogs(id uuid.UUID) (*RunLogInfo, error)
	OnRunDone(id uuid.UUID, workflow string, status Status, logs []*LogEntry) error
	Recover() ([]RunLogInfo, error)
}
