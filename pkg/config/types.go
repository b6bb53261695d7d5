package config

import (
	"fmt"
	"sort"
)

// SchemaVersion is the only document schema version understood by this
// orchestrator.
const SchemaVersion = 2

// CheckoutStep is the bare scalar used in a step list to request a source
// checkout.
const CheckoutStep = "checkout"

// EnvMap holds the environment variables of a job. The document represents
// it as a list of single-key mappings; keys must be unique per job.
type EnvMap map[string]string

func (m *EnvMap) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var entries []map[string]interface{}
	if err := unmarshal(&entries); err != nil {
		return err
	}
	result := make(EnvMap, len(entries))
	for _, entry := range entries {
		if len(entry) != 1 {
			return fmt.Errorf("environment entries must be single-key mappings")
		}
		for k, v := range entry {
			if _, exists := result[k]; exists {
				return fmt.Errorf("duplicate environment variable: %s", k)
			}
			result[k] = fmt.Sprintf("%v", v)
		}
	}
	*m = result
	return nil
}

func (m EnvMap) MarshalYAML() (interface{}, error) {
	entries := make([]map[string]string, 0, len(m))
	for _, k := range m.sortedKeys() {
		entries = append(entries, map[string]string{k: m[k]})
	}
	return entries, nil
}

func (m EnvMap) sortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Step is one shell-level action within a job: either a source checkout or
// a shell command with an optional human-readable name. A step with Retry
// set is granted exactly one re-execution on failure.
type Step struct {
	Name     string
	Command  string
	Retry    bool
	Checkout bool
}

func (s *Step) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		if scalar != CheckoutStep {
			return fmt.Errorf("unknown step %q", scalar)
		}
		*s = Step{Checkout: true}
		return nil
	}
	var cmd struct {
		Name    string `yaml:"name"`
		Command string `yaml:"command"`
		Retry   bool   `yaml:"retry"`
	}
	if err := unmarshal(&cmd); err != nil {
		return err
	}
	*s = Step{Name: cmd.Name, Command: cmd.Command, Retry: cmd.Retry}
	return nil
}

func (s Step) MarshalYAML() (interface{}, error) {
	if s.Checkout {
		return CheckoutStep, nil
	}
	var cmd struct {
		Name    string `yaml:"name,omitempty"`
		Command string `yaml:"command"`
		Retry   bool   `yaml:"retry,omitempty"`
	}
	cmd.Name = s.Name
	cmd.Command = s.Command
	cmd.Retry = s.Retry
	return cmd, nil
}

// Job is one independently scheduled execution unit: an ordered step
// sequence plus its environment. Machine requests a full virtual machine
// rather than a lightweight sandbox. Secrets lists environment variable
// names whose values are resolved from the orchestrator process environment
// at run time; secret values never appear in the document.
type Job struct {
	Machine     bool     `yaml:"machine,omitempty"`
	Environment EnvMap   `yaml:"environment,omitempty"`
	Secrets     []string `yaml:"secrets,omitempty"`
	Steps       []Step   `yaml:"steps,omitempty"`
}

// Workflow selects which jobs run together for a trigger. The listed jobs
// execute in parallel; there are no dependency edges.
type Workflow struct {
	Jobs []string `yaml:"jobs"`
}

// Pipeline is the whole declarative document. Defaults is a shared job
// template merged into every job, with per-job fields taking precedence.
type Pipeline struct {
	Version   int                  `yaml:"version"`
	Defaults  *Job                 `yaml:"defaults,omitempty"`
	Jobs      map[string]*Job      `yaml:"jobs"`
	Workflows map[string]*Workflow `yaml:"workflows"`
}
