package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pedro-r-marques/cirunner/pkg/config"
)

type pipelineState struct {
	Name   string
	Config config.Workflow
	Jobs   map[string]*config.Job
	mutex  sync.Mutex
	runs   []uuid.UUID
}

func makePipelineState(name string, wconfig *config.Workflow, jobs map[string]*config.Job) *pipelineState {
	resolved := make(map[string]*config.Job, len(wconfig.Jobs))
	for _, jobName := range wconfig.Jobs {
		resolved[jobName] = jobs[jobName]
	}
	return &pipelineState{
		Name:   name,
		Config: *wconfig,
		Jobs:   resolved,
	}
}

func (p *pipelineState) onRunCreate(run *runState) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.runs = append(p.runs, run.ID)
}

func (p *pipelineState) onRunDone(run *runState) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for ix, id := range p.runs {
		if id == run.ID {
			if ix != len(p.runs)-1 {
				p.runs[ix] = p.runs[len(p.runs)-1]
			}
			p.runs = p.runs[:len(p.runs)-1]
		}
	}
}
