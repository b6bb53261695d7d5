package engine

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event kinds published on the event bus.
const (
	EventRunStarted   = "run.started"
	EventRunFinished  = "run.finished"
	EventJobStarted   = "job.started"
	EventJobFinished  = "job.finished"
	EventStepStarted  = "step.started"
	EventStepFinished = "step.finished"
	EventStepRetried  = "step.retried"
)

type Event struct {
	Run      uuid.UUID `json:"run"`
	Workflow string    `json:"workflow"`
	Job      string    `json:"job,omitempty"`
	Step     string    `json:"step,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
	Kind     string    `json:"kind"`
	Status   Status    `json:"status,omitempty"`
	Time     time.Time `json:"time"`
}

type EventBus interface {
	Publish(ev Event) error
}
