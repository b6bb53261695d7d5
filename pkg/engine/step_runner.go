package engine

import (
	"context"

	"github.com/pedro-r-marques/cirunner/pkg/config"
)

// StepRunner executes a single step of a job and returns its combined
// output. A nil error means the step exited 0.
type StepRunner interface {
	RunStep(ctx context.Context, job string, step config.Step, env map[string]string) ([]byte, error)
}
