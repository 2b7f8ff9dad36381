package core

import "time"

// JobKind distinguishes the two batch operations the service runs in the
// background.
type JobKind string

const (
	JobImport JobKind = "import"
	JobEnrich JobKind = "enrich"
)

// JobPhase indicates the current stage of batch processing.
type JobPhase string

const (
	PhaseStarting    JobPhase = "starting"
	PhaseReading     JobPhase = "reading"
	PhaseBuilding    JobPhase = "building"
	PhaseReconciling JobPhase = "reconciling"
	PhaseEnriching   JobPhase = "enriching"
	PhaseSaving      JobPhase = "saving"
	PhaseComplete    JobPhase = "complete"
	PhaseFailed      JobPhase = "failed"
	PhaseCancelled   JobPhase = "cancelled"
)

// Terminal reports whether the phase is a final state.
func (p JobPhase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseCancelled
}

// JobProgress is a point-in-time snapshot of a running job, pushed to
// subscribers as the job advances.
type JobProgress struct {
	JobID    string   `json:"jobId"`
	Kind     JobKind  `json:"kind"`
	Phase    JobPhase `json:"phase"`
	FileName string   `json:"fileName,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Current  int      `json:"current"`
	Total    int      `json:"total"`
	Updated  int      `json:"updated,omitempty"`
	Skipped  int      `json:"skipped,omitempty"`
	Error    string   `json:"error,omitempty"` // non-empty when Phase is PhaseFailed
}

// Percent returns the progress as a percentage (0-100).
// Returns 0 if the total is not yet known.
func (p JobProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := p.Current * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	return pct
}

// JobResult summarizes a finished job. Import and enrichment jobs share the
// type; fields that do not apply to a kind stay zero.
type JobResult struct {
	JobID    string  `json:"jobId"`
	Kind     JobKind `json:"kind"`
	FileName string  `json:"fileName,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Provider string  `json:"provider,omitempty"`

	// Import counters.
	TotalRows  int `json:"totalRows,omitempty"`
	UniqueRows int `json:"uniqueRows,omitempty"`
	Duplicates int `json:"duplicates,omitempty"`
	Inserted   int `json:"inserted,omitempty"`
	Updated    int `json:"updated,omitempty"`

	// Enrichment counters.
	Enriched int `json:"enriched,omitempty"`
	Skipped  int `json:"skipped,omitempty"`

	// DuplicatesByCause breaks down the duplicate count per match cause.
	DuplicatesByCause map[string]int `json:"duplicatesByCause,omitempty"`

	Cancelled bool          `json:"cancelled,omitempty"`
	Duration  time.Duration `json:"-"`
	Error     string        `json:"error,omitempty"`

	// UserMsg carries the support-friendly rendering of Error, when set.
	UserMsg *UserMessage `json:"userMessage,omitempty"`
}
