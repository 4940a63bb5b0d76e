package checkpoint

import (
	"time"

	"sdrprep/internal/report"
)

// RunState is the single durable row describing the latest run.
type RunState struct {
	RunID          string
	Status         report.RunStatus
	AwaitingReboot bool
	StartedAt      time.Time
	UpdatedAt      time.Time
}
