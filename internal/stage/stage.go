package stage

import (
	"fmt"
	"strings"
	"time"

	"authorship/internal/artifact"
	"authorship/internal/failure"
)

// Name identifies a pipeline stage.
type Name string

const (
	EDA                Name = "eda"
	Preprocessing      Name = "preprocessing"
	FeatureEngineering Name = "feature_engineering"
	Training           Name = "training"
	Evaluation         Name = "evaluation"
)

// Order returns the stages in execution order.
func Order() []Name {
	return []Name{EDA, Preprocessing, FeatureEngineering, Training, Evaluation}
}

// ConfigKey is the enable flag controlling the stage.
func (n Name) ConfigKey() string { return "stages.enable_" + string(n) }

// ParseName resolves a stage name, accepting dashes for underscores.
func ParseName(value string) (Name, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, n := range Order() {
		if string(n) == normalized {
			return n, nil
		}
	}
	return "", failure.Configf("stages", "unknown stage %q", value)
}

// Status is the outcome of one stage in a run.
type Status string

const (
	StatusRecomputed Status = "recomputed"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	StatusNotRun     Status = "not_run"
)

// Ref addresses one artifact a stage produces.
type Ref struct {
	Name        string        `json:"name"`
	Kind        artifact.Kind `json:"kind"`
	Fingerprint string        `json:"fingerprint"`
}

// Result records how a stage finished.
type Result struct {
	Stage     Name          `json:"stage"`
	Status    Status        `json:"status"`
	Artifacts []Ref         `json:"artifacts,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Err       error         `json:"-"`
}

// Report collects every stage result of one run in execution order.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Result returns the outcome recorded for name.
func (r Report) Result(name Name) (Result, bool) {
	for _, res := range r.Results {
		if res.Stage == name {
			return res, true
		}
	}
	return Result{}, false
}

// Status returns the status recorded for name, or StatusNotRun.
func (r Report) Status(name Name) Status {
	if res, ok := r.Result(name); ok {
		return res.Status
	}
	return StatusNotRun
}

// Failed returns the failing stage result, if any.
func (r Report) Failed() (Result, bool) {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return res, true
		}
	}
	return Result{}, false
}

// Summary renders "eda=recomputed preprocessing=skipped ...".
func (r Report) Summary() string {
	parts := make([]string, 0, len(Order()))
	for _, n := range Order() {
		parts = append(parts, fmt.Sprintf("%s=%s", n, r.Status(n)))
	}
	return strings.Join(parts, " ")
}
