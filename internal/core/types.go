package core

import (
	"time"

	"covidfeed/internal/covid"
	"covidfeed/internal/frame"
)

// RunPhase identifies where a build run currently is.
type RunPhase string

const (
	PhaseStarting    RunPhase = "starting"
	PhaseFetching    RunPhase = "fetching"
	PhaseReading     RunPhase = "reading"
	PhaseNormalizing RunPhase = "normalizing"
	PhaseProjecting  RunPhase = "projecting"
	PhaseWriting     RunPhase = "writing"
	PhaseComplete    RunPhase = "complete"
	PhaseFailed      RunPhase = "failed"
	PhaseCancelled   RunPhase = "cancelled"
)

// Terminal reports whether the phase is final.
func (p RunPhase) Terminal() bool {
	switch p {
	case PhaseComplete, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// RunRequest asks for a rebuild.
type RunRequest struct {
	// Datasets restricts the run to the named dataset keys. Empty
	// means all registered datasets.
	Datasets []string `json:"datasets,omitempty"`

	// Force refetches sources even when the cached copy is fresh.
	Force bool `json:"force,omitempty"`
}

// RunProgress is a point-in-time snapshot of a run.
type RunProgress struct {
	RunID        string   `json:"run_id"`
	Phase        RunPhase `json:"phase"`
	Dataset      string   `json:"dataset,omitempty"`
	DatasetsDone int      `json:"datasets_done"`
	DatasetCount int      `json:"dataset_count"`
	Rows         int      `json:"rows"`
	Items        int      `json:"items"`
	Error        string   `json:"error,omitempty"`
}

// Percent estimates completion. Dataset processing accounts for 90%,
// the final write for the rest.
func (p RunProgress) Percent() int {
	switch p.Phase {
	case PhaseComplete:
		return 100
	case PhaseFailed, PhaseCancelled:
		return 0
	case PhaseWriting:
		return 95
	}
	if p.DatasetCount == 0 {
		return 0
	}
	return p.DatasetsDone * 90 / p.DatasetCount
}

// DatasetResult summarizes one dataset of a completed run.
type DatasetResult struct {
	Key        string        `json:"key"`
	Rows       int           `json:"rows"`
	Items      int           `json:"items"`
	Fetched    bool          `json:"fetched"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms"`
}

// RunResult is the outcome of a finished run.
type RunResult struct {
	RunID      string          `json:"run_id"`
	Datasets   []DatasetResult `json:"datasets"`
	Items      int             `json:"items"`
	Countries  int             `json:"countries"`
	Files      int             `json:"files"`
	OutputDir  string          `json:"output_dir"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Duration   time.Duration   `json:"-"`
	DurationMs int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

// RunStatus is the API-facing view of a run, active or finished.
type RunStatus struct {
	RunID     string      `json:"run_id"`
	StartedAt time.Time   `json:"started_at"`
	Progress  RunProgress `json:"progress"`
	Result    *RunResult  `json:"result,omitempty"`
}

// DatasetInfo describes a registered dataset for listings.
type DatasetInfo struct {
	Key       string `json:"key"`
	Group     string `json:"group"`
	Label     string `json:"label"`
	SourceURL string `json:"source_url,omitempty"`
	Filename  string `json:"filename"`
}

// Accumulator collects projection output across the datasets of one
// run. The sink consumes it whole once every dataset projected.
type Accumulator struct {
	Items      []covid.Item
	Population []covid.PopulationHistory
}

// DatasetDefinition is a registered dataset: its identity, how to find
// its header row, and how to project the normalized table.
type DatasetDefinition struct {
	Info DatasetInfo

	// HeaderHints are the leading raw header cells used to locate the
	// header row when the file starts with preamble lines.
	HeaderHints []string

	// Project folds the normalized table into the accumulator and
	// returns the number of documents produced.
	Project func(t *frame.Table, acc *Accumulator) (int, error)
}
