package engine

//go:generate mockgen -source engine.go -destination ./mock/engine.go

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pedro-r-marques/cirunner/pkg/config"
)

// Information returned by ListPipelines per configured workflow.
type PipelineInfo struct {
	Name     string   `json:"name"`
	Jobs     []string `json:"jobs"`
	RunCount int      `json:"run_count"`
}

// RunStatusInfo is the status snapshot of one run: entries still executing
// under Open, finished attempts under Closed.
type RunStatusInfo struct {
	Workflow string           `json:"workflow"`
	Status   Status           `json:"status"`
	Open     []JobStatusEntry `json:"running"`
	Closed   []JobStatusEntry `json:"completed"`
}

type RunEngine interface {
	// Pipeline configuration
	Update(pipeline *config.Pipeline) error
	Delete(name string) error
	ListPipelines() []PipelineInfo

	// Workflow runs
	Create(workflow string, id uuid.UUID) error
	Cancel(id uuid.UUID) error
	Watch(id uuid.UUID, allEvents bool, ch chan LogEntry) error
	RunStatus(id uuid.UUID) (*RunStatusInfo, error)
	ListRuns() []uuid.UUID
	ListWorkflowRuns(workflow string) ([]uuid.UUID, error)

	RecoverRuns() error
}

type engine struct {
	runner    StepRunner
	store     RunStore
	bus       EventBus
	pipelines map[string]*pipelineState
	runs      map[uuid.UUID]*runState
	mutex     sync.Mutex
}

// NewRunEngine creates an engine that executes steps with the given runner.
// Both store and bus may be nil: runs are then neither persisted nor
// announced.
func NewRunEngine(runner StepRunner, store RunStore, bus EventBus) RunEngine {
	return &engine{
		runner:    runner,
		store:     store,
		bus:       bus,
		pipelines: make(map[string]*pipelineState),
		runs:      make(map[uuid.UUID]*runState),
	}
}

func (e *engine) Update(pipeline *config.Pipeline) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for name, wconfig := range pipeline.Workflows {
		e.pipelines[name] = makePipelineState(name, wconfig, pipeline.Jobs)
	}
	return nil
}

func (e *engine) Delete(name string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if _, exists := e.pipelines[name]; !exists {
		return fmt.Errorf("unknown workflow: %s", name)
	}
	delete(e.pipelines, name)
	return nil
}

func (e *engine) ListPipelines() []PipelineInfo {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	result := make([]PipelineInfo, 0, len(e.pipelines))
	for _, p := range e.pipelines {
		p.mutex.Lock()
		result = append(result, PipelineInfo{
			Name:     p.Name,
			Jobs:     p.Config.Jobs,
			RunCount: len(p.runs),
		})
		p.mutex.Unlock()
	}
	return result
}

func (e *engine) publish(ev Event) {
	if e.bus == nil {
		return
	}
	ev.Time = time.Now()
	if err := e.bus.Publish(ev); err != nil {
		log.Error().Err(err).Msg("event publish")
	}
}

func (e *engine) storeUpdate(run *runState, entry *LogEntry) {
	if e.store == nil {
		return
	}
	if err := e.store.Update(run.ID, run.Pipeline.Name, []*LogEntry{entry}); err != nil {
		log.Error().Err(err).Msg("store update")
	}
}

// buildJobEnv resolves the effective environment of a job: its declared
// variables plus secret values looked up in the orchestrator process
// environment. A missing secret fails the job before any step runs.
func buildJobEnv(jobConfig *config.Job) (map[string]string, error) {
	env := make(map[string]string, len(jobConfig.Environment)+len(jobConfig.Secrets))
	for k, v := range jobConfig.Environment {
		env[k] = v
	}
	for _, name := range jobConfig.Secrets {
		value, ok := os.LookupEnv(name)
		if !ok {
			return nil, fmt.Errorf("secret %s not present in orchestrator environment", name)
		}
		env[name] = value
	}
	return env, nil
}

func stepName(step config.Step) string {
	if step.Checkout {
		return config.CheckoutStep
	}
	if step.Name != "" {
		return step.Name
	}
	return step.Command
}

func (e *engine) Create(workflow string, id uuid.UUID) error {
	e.mutex.Lock()
	if _, exists := e.runs[id]; exists {
		e.mutex.Unlock()
		return fmt.Errorf("duplicate run id: %v", id)
	}
	pstate, exists := e.pipelines[workflow]
	if !exists {
		e.mutex.Unlock()
		return fmt.Errorf("unknown workflow: %s", workflow)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &runState{
		ID:       id,
		Pipeline: pstate,
		jobs:     make(map[string]Status, len(pstate.Config.Jobs)),
		cancel:   cancel,
	}
	for _, name := range pstate.Config.Jobs {
		run.jobs[name] = StatusRunning
	}
	e.runs[id] = run
	e.mutex.Unlock()

	pstate.onRunCreate(run)

	log.Debug().
		Str("id", id.String()).
		Str("workflow", workflow).
		Msg("create run")

	e.publish(Event{Run: id, Workflow: workflow, Kind: EventRunStarted, Status: StatusRunning})

	go e.runWorkflow(ctx, run)
	return nil
}

// runWorkflow fans the run's jobs out in parallel. Jobs share nothing and
// have no ordering between them; the run finishes when every job finishes.
func (e *engine) runWorkflow(ctx context.Context, run *runState) {
	var wg sync.WaitGroup
	for _, name := range run.Pipeline.Config.Jobs {
		jobConfig := run.Pipeline.Jobs[name]
		wg.Add(1)
		go func(name string, jobConfig *config.Job) {
			defer wg.Done()
			status := e.runJob(ctx, run, name, jobConfig)

			run.mutex.Lock()
			run.jobs[name] = status
			run.mutex.Unlock()

			e.publish(Event{
				Run:      run.ID,
				Workflow: run.Pipeline.Name,
				Job:      name,
				Kind:     EventJobFinished,
				Status:   status,
			})
		}(name, jobConfig)
	}
	wg.Wait()
	e.completed(run)
}

// runJob executes the job's steps strictly in sequence. The first failing
// step without a retry marker is fatal: later steps are never invoked.
func (e *engine) runJob(ctx context.Context, run *runState, name string, jobConfig *config.Job) Status {
	mode := "sandbox"
	if jobConfig.Machine {
		mode = "machine"
	}
	log.Debug().
		Str("id", run.ID.String()).
		Str("job", name).
		Str("mode", mode).
		Msg("job start")

	e.publish(Event{
		Run:      run.ID,
		Workflow: run.Pipeline.Name,
		Job:      name,
		Kind:     EventJobStarted,
		Status:   StatusRunning,
	})

	env, err := buildJobEnv(jobConfig)
	if err != nil {
		now := time.Now()
		entry := &LogEntry{
			Job:     name,
			Step:    "environment",
			Attempt: 1,
			Start:   now,
			End:     now,
			Status:  StatusFailed,
			Output:  []byte(err.Error()),
		}
		run.addClosed(entry)
		e.storeUpdate(run, entry)
		return StatusFailed
	}

	for _, step := range jobConfig.Steps {
		if ctx.Err() != nil {
			return StatusCanceled
		}
		status := e.runStep(ctx, run, name, step, env)
		if status != StatusPassed {
			return status
		}
	}
	return StatusPassed
}

// runStep executes one step, granting exactly one extra attempt when the
// step carries the retry marker. No backoff, no error classification.
func (e *engine) runStep(ctx context.Context, run *runState, job string, step config.Step, env map[string]string) Status {
	attempts := 1
	if step.Retry {
		attempts = 2
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		entry := &LogEntry{
			Job:     job,
			Step:    stepName(step),
			Attempt: attempt,
			Start:   time.Now(),
			Status:  StatusRunning,
		}
		run.addOpen(entry)

		e.publish(Event{
			Run:      run.ID,
			Workflow: run.Pipeline.Name,
			Job:      job,
			Step:     entry.Step,
			Attempt:  attempt,
			Kind:     EventStepStarted,
			Status:   StatusRunning,
		})

		output, err := e.runner.RunStep(ctx, job, step, env)

		status := StatusPassed
		if err != nil {
			status = StatusFailed
			if ctx.Err() != nil {
				status = StatusCanceled
			}
		}
		run.closeEntry(entry, status, output)
		e.storeUpdate(run, entry)

		e.publish(Event{
			Run:      run.ID,
			Workflow: run.Pipeline.Name,
			Job:      job,
			Step:     entry.Step,
			Attempt:  attempt,
			Kind:     EventStepFinished,
			Status:   status,
		})

		switch status {
		case StatusPassed, StatusCanceled:
			return status
		}

		if attempt < attempts {
			log.Debug().
				Str("id", run.ID.String()).
				Str("job", job).
				Str("step", entry.Step).
				Msg("step retry")
			e.publish(Event{
				Run:      run.ID,
				Workflow: run.Pipeline.Name,
				Job:      job,
				Step:     entry.Step,
				Attempt:  attempt,
				Kind:     EventStepRetried,
				Status:   StatusFailed,
			})
		}
	}
	return StatusFailed
}

func (run *runState) addOpen(entry *LogEntry) {
	run.mutex.Lock()
	defer run.mutex.Unlock()
	run.Open = append(run.Open, entry)
}

func (run *runState) addClosed(entry *LogEntry) {
	run.mutex.Lock()
	defer run.mutex.Unlock()
	run.Closed = append(run.Closed, entry)
	if run.watcher != nil && run.watchAll {
		run.watcher <- *entry
	}
}

func (run *runState) closeEntry(entry *LogEntry, status Status, output []byte) {
	run.mutex.Lock()
	defer run.mutex.Unlock()
	for i, open := range run.Open {
		if open == entry {
			run.Open = append(run.Open[:i], run.Open[i+1:]...)
			break
		}
	}
	entry.End = time.Now()
	entry.Status = status
	entry.Output = output
	run.Closed = append(run.Closed, entry)
	if run.watcher != nil && run.watchAll {
		run.watcher <- *entry
	}
}

// completed aggregates job results into the run's final status and delivers
// the terminal entry. A failed job is reported per job name; there is no
// partial-success concept.
func (e *engine) completed(run *runState) {
	run.mutex.Lock()
	status := StatusPassed
	for name, s := range run.jobs {
		switch s {
		case StatusCanceled:
			status = StatusCanceled
		case StatusFailed:
			if status != StatusCanceled {
				status = StatusFailed
			}
			log.Debug().
				Str("id", run.ID.String()).
				Str("job", name).
				Msg("job failed")
		}
	}

	now := time.Now()
	terminal := &LogEntry{
		Step:   RunDone,
		Start:  now,
		End:    now,
		Status: status,
	}
	run.terminal = terminal
	logs := make([]*LogEntry, len(run.Closed))
	copy(logs, run.Closed)
	run.mutex.Unlock()

	run.Pipeline.onRunDone(run)

	if e.store != nil {
		if err := e.store.OnRunDone(run.ID, run.Pipeline.Name, status, logs); err != nil {
			log.Error().Err(err).Msg("store run done")
		}
	}

	e.publish(Event{
		Run:      run.ID,
		Workflow: run.Pipeline.Name,
		Kind:     EventRunFinished,
		Status:   status,
	})

	log.Debug().
		Str("id", run.ID.String()).
		Str("status", string(status)).
		Msg("run done")

	run.mutex.Lock()
	if run.watcher != nil {
		run.watcher <- *terminal
		close(run.watcher)
		run.watcher = nil
	}
	run.mutex.Unlock()
}

func (e *engine) Cancel(id uuid.UUID) error {
	e.mutex.Lock()
	run, exists := e.runs[id]
	e.mutex.Unlock()
	if !exists {
		return fmt.Errorf("unknown run id %v", id)
	}

	run.mutex.Lock()
	terminal := run.terminal
	cancel := run.cancel
	run.mutex.Unlock()

	if terminal != nil {
		return fmt.Errorf("run %v already finished", id)
	}
	cancel()
	return nil
}

func (e *engine) Watch(id uuid.UUID, allEvents bool, ch chan LogEntry) error {
	e.mutex.Lock()
	run, exists := e.runs[id]
	e.mutex.Unlock()
	if !exists {
		return fmt.Errorf("unknown run id %v", id)
	}

	run.mutex.Lock()
	defer run.mutex.Unlock()

	if run.terminal != nil {
		ch <- *run.terminal
		close(ch)
		return nil
	}
	run.watcher = ch
	run.watchAll = allEvents
	return nil
}

func elapsedTime(end, start time.Time) time.Duration {
	if end.IsZero() {
		return 0
	}
	return end.Sub(start)
}

func makeStatusEntry(entry *LogEntry) JobStatusEntry {
	return JobStatusEntry{
		Job:     entry.Job,
		Step:    entry.Step,
		Attempt: entry.Attempt,
		Start:   entry.Start,
		Elapsed: elapsedTime(entry.End, entry.Start),
		Status:  entry.Status,
		Output:  string(entry.Output),
	}
}

func (e *engine) RunStatus(id uuid.UUID) (*RunStatusInfo, error) {
	e.mutex.Lock()
	run, exists := e.runs[id]
	e.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("unknown run id %v", id)
	}

	run.mutex.Lock()
	defer run.mutex.Unlock()

	info := &RunStatusInfo{
		Workflow: run.Pipeline.Name,
		Status:   StatusRunning,
		Open:     make([]JobStatusEntry, 0, len(run.Open)),
		Closed:   make([]JobStatusEntry, 0, len(run.Closed)),
	}
	if run.terminal != nil {
		info.Status = run.terminal.Status
	}
	for _, entry := range run.Open {
		info.Open = append(info.Open, makeStatusEntry(entry))
	}
	for _, entry := range run.Closed {
		info.Closed = append(info.Closed, makeStatusEntry(entry))
	}
	return info, nil
}

func (e *engine) ListRuns() []uuid.UUID {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	runIDs := make([]uuid.UUID, 0, len(e.runs))
	for k := range e.runs {
		runIDs = append(runIDs, k)
	}
	return runIDs
}

func (e *engine) ListWorkflowRuns(workflow string) ([]uuid.UUID, error) {
	e.mutex.Lock()
	pstate, exists := e.pipelines[workflow]
	e.mutex.Unlock()
	if !exists {
		return nil, fmt.Errorf("unknown workflow %s", workflow)
	}

	pstate.mutex.Lock()
	defer pstate.mutex.Unlock()

	runIDs := make([]uuid.UUID, len(pstate.runs))
	copy(runIDs, pstate.runs)
	return runIDs, nil
}

// RecoverRuns marks store-resident runs without a terminal record as failed.
// Shell steps are not resumable; re-triggering an interrupted workflow is
// the caller's decision.
func (e *engine) RecoverRuns() error {
	if e.store == nil {
		return nil
	}
	infos, err := e.store.Recover()
	if err != nil {
		return err
	}
	for i := range infos {
		info := &infos[i]
		log.Warn().
			Str("id", info.ID.String()).
			Str("workflow", info.Workflow).
			Msg("run interrupted")

		now := time.Now()
		logs := append(info.Logs, &LogEntry{
			Step:   "interrupted",
			Start:  now,
			End:    now,
			Status: StatusFailed,
		})
		if err := e.store.OnRunDone(info.ID, info.Workflow, StatusFailed, logs); err != nil {
			return err
		}
	}
	return nil
}
