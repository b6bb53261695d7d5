package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"reflect"
	"regexp"

	"gopkg.in/yaml.v2"
)

type configValidator struct {
	namePattern *regexp.Regexp
	envPattern  *regexp.Regexp
}

func newConfigValidator() *configValidator {
	return &configValidator{
		namePattern: regexp.MustCompile(`[a-zA-Z][\w\-.]*`),
		envPattern:  regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`),
	}
}

func fullMatchString(re *regexp.Regexp, str string) bool {
	locs := re.FindStringIndex(str)
	return reflect.DeepEqual(locs, []int{0, len(str)})
}

func (v *configValidator) validateSteps(jobName string, steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("job %s: no steps defined", jobName)
	}
	if !steps[0].Checkout {
		return fmt.Errorf("job %s: first step must be %q", jobName, CheckoutStep)
	}
	for i, step := range steps {
		if !step.Checkout && step.Command == "" {
			return fmt.Errorf("job %s: step %d has no command", jobName, i)
		}
		if step.Retry && i != len(steps)-1 {
			return fmt.Errorf("job %s: only the final step may be marked for retry", jobName)
		}
		if step.Retry && step.Checkout {
			return fmt.Errorf("job %s: checkout step may not be marked for retry", jobName)
		}
	}
	return nil
}

func (v *configValidator) validateJob(name string, job *Job) error {
	if !fullMatchString(v.namePattern, name) {
		return fmt.Errorf("invalid job name: %s", name)
	}
	for key := range job.Environment {
		if !fullMatchString(v.envPattern, key) {
			return fmt.Errorf("job %s: invalid environment variable name: %s", name, key)
		}
	}
	seen := make(map[string]bool, len(job.Secrets))
	for _, secret := range job.Secrets {
		if !fullMatchString(v.envPattern, secret) {
			return fmt.Errorf("job %s: invalid secret name: %s", name, secret)
		}
		if seen[secret] {
			return fmt.Errorf("job %s: duplicate secret: %s", name, secret)
		}
		seen[secret] = true
		if _, exists := job.Environment[secret]; exists {
			return fmt.Errorf("job %s: %s declared both as secret and as environment value", name, secret)
		}
	}
	return v.validateSteps(name, job.Steps)
}

func (v *configValidator) Validate(pipeline *Pipeline) error {
	if pipeline.Version != SchemaVersion {
		return fmt.Errorf("unsupported schema version: %d", pipeline.Version)
	}
	if len(pipeline.Jobs) == 0 {
		return fmt.Errorf("no jobs defined")
	}
	for name, job := range pipeline.Jobs {
		if err := v.validateJob(name, job); err != nil {
			return err
		}
	}
	if len(pipeline.Workflows) == 0 {
		return fmt.Errorf("no workflows defined")
	}
	for name, workflow := range pipeline.Workflows {
		if !fullMatchString(v.namePattern, name) {
			return fmt.Errorf("invalid workflow name: %s", name)
		}
		if len(workflow.Jobs) == 0 {
			return fmt.Errorf("workflow %s: no jobs listed", name)
		}
		seen := make(map[string]bool, len(workflow.Jobs))
		for _, jobName := range workflow.Jobs {
			if _, exists := pipeline.Jobs[jobName]; !exists {
				return fmt.Errorf("workflow %s: job %s not defined", name, jobName)
			}
			if seen[jobName] {
				return fmt.Errorf("workflow %s: duplicate job: %s", name, jobName)
			}
			seen[jobName] = true
		}
	}
	return nil
}

// mergeDefaults folds the shared job template into a job. Per-job fields
// take precedence; environment entries override defaults by key, secrets
// are the union of both lists, and a job inherits the default step list
// only when it declares none of its own.
func mergeDefaults(defaults, job *Job) {
	if defaults == nil {
		return
	}
	if defaults.Machine {
		job.Machine = true
	}
	if len(defaults.Environment) > 0 {
		merged := make(EnvMap, len(defaults.Environment)+len(job.Environment))
		for k, v := range defaults.Environment {
			merged[k] = v
		}
		for k, v := range job.Environment {
			merged[k] = v
		}
		job.Environment = merged
	}
	if len(defaults.Secrets) > 0 {
		seen := make(map[string]bool, len(job.Secrets))
		for _, s := range job.Secrets {
			seen[s] = true
		}
		for _, s := range defaults.Secrets {
			if !seen[s] {
				job.Secrets = append(job.Secrets, s)
				seen[s] = true
			}
		}
	}
	if len(job.Steps) == 0 {
		job.Steps = append([]Step(nil), defaults.Steps...)
	}
}

// Parse decodes a pipeline document, applies the shared defaults template
// to every job and validates the result.
func Parse(data []byte) (*Pipeline, error) {
	var pipeline Pipeline
	if err := yaml.Unmarshal(data, &pipeline); err != nil {
		return nil, err
	}
	for _, job := range pipeline.Jobs {
		mergeDefaults(pipeline.Defaults, job)
	}
	v := newConfigValidator()
	if err := v.Validate(&pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

func ParseConfig(filename string) (*Pipeline, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading %v: %w", filename, err)
	}
	return Parse(data)
}

// Write re-serializes the document. The job and workflow maps are emitted
// in yaml map order; step lists keep their order.
func (p *Pipeline) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(p)
}
