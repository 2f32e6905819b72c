package audit

import "time"

// FindingLevel classifies a single audit observation.
type FindingLevel string

// Finding levels ordered by severity.
const (
	FindingLevelOK    FindingLevel = "OK"
	FindingLevelInfo  FindingLevel = "INFO"
	FindingLevelWarn  FindingLevel = "WARN"
	FindingLevelError FindingLevel = "ERROR"
)

// PipelineStatus is the aggregate verdict of a checkup run.
type PipelineStatus string

// Aggregate statuses.
const (
	PipelineStatusReady      PipelineStatus = "READY"
	PipelineStatusDegraded   PipelineStatus = "DEGRADED"
	PipelineStatusNeedsFixes PipelineStatus = "NEEDS_FIXES"
)

// Finding is one classified observation produced by a checker.
type Finding struct {
	Level      FindingLevel `json:"level"`
	ResourceID string       `json:"resource_id"`
	Message    string       `json:"message"`
	ProducedAt time.Time    `json:"produced_at"`
}

// AuditReport is the terminal output of a checkup run. It is assembled once
// after all checkers complete and never mutated after persistence.
type AuditReport struct {
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
	Root         string         `json:"root"`
	Findings     []Finding      `json:"findings"`
	StageDetails map[string]any `json:"stage_details"`
	Status       PipelineStatus `json:"status"`
}

// Clock supplies the current time to freshness arithmetic.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
