// Package exec runs pipeline steps as local shell commands.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/pedro-r-marques/cirunner/pkg/config"
)

const defaultStepTimeout = 30 * time.Minute

// Runner executes steps with "sh -c". The job environment is layered on
// top of the orchestrator process environment. Checkout steps run the
// configured checkout command so the engine stays agnostic of the VCS.
type Runner struct {
	CheckoutCommand string
	StepTimeout     time.Duration
	Dir             string
}

func NewRunner(checkoutCommand string) *Runner {
	return &Runner{
		CheckoutCommand: checkoutCommand,
		StepTimeout:     defaultStepTimeout,
	}
}

func (r *Runner) RunStep(ctx context.Context, job string, step config.Step, env map[string]string) ([]byte, error) {
	command := step.Command
	if step.Checkout {
		if r.CheckoutCommand == "" {
			return nil, fmt.Errorf("job %s: no checkout command configured", job)
		}
		command = r.CheckoutCommand
	}

	timeout := r.StepTimeout
	if timeout == 0 {
		timeout = defaultStepTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), envList(env)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(env))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}
