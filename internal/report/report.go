package report

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus represents the lifecycle of a single stage.
type StageStatus string

const (
	StagePending     StageStatus = "pending"
	StageRunning     StageStatus = "running"
	StageSuccess     StageStatus = "success"
	StageSatisfied   StageStatus = "satisfied"
	StageFailed      StageStatus = "failed"
	StageBlocked     StageStatus = "blocked"
	StageInterrupted StageStatus = "interrupted"
)

var stageStatusSet = map[StageStatus]struct{}{
	StagePending:     {},
	StageRunning:     {},
	StageSuccess:     {},
	StageSatisfied:   {},
	StageFailed:      {},
	StageBlocked:     {},
	StageInterrupted: {},
}

// ValidStageStatus reports whether s is a known status.
func ValidStageStatus(s StageStatus) bool {
	_, ok := stageStatusSet[s]
	return ok
}

// Done reports whether the stage needs no further work this run.
func (s StageStatus) Done() bool {
	return s == StageSuccess || s == StageSatisfied
}

// RunStatus summarizes a whole run.
type RunStatus string

const (
	RunInProgress   RunStatus = "in_progress"
	RunCompleted    RunStatus = "completed"
	RunFailed       RunStatus = "failed"
	RunAwaitingUser RunStatus = "awaiting_user"
)

// StageResult is the durable record of one stage's latest state.
type StageResult struct {
	StageID    string
	Status     StageStatus
	Attempts   int
	ErrKind    string
	ErrMessage string
	UpdatedAt  time.Time
}

// RunReport aggregates stage results in catalog order.
type RunReport struct {
	RunID   string
	Status  RunStatus
	Started time.Time
	Ended   time.Time
	Results []StageResult
}

// NewRunID mints a unique identifier for one orchestrator run.
func NewRunID() string {
	return uuid.NewString()
}

// Result returns the entry for the given stage id, or nil.
func (r *RunReport) Result(stageID string) *StageResult {
	for i := range r.Results {
		if r.Results[i].StageID == stageID {
			return &r.Results[i]
		}
	}
	return nil
}

// Summarize derives the run status from the stage results: any failure or
// block means Failed, a reboot hand-off means AwaitingUser, everything done
// means Completed.
func Summarize(results []StageResult, awaitingReboot bool) RunStatus {
	if awaitingReboot {
		return RunAwaitingUser
	}
	done := true
	for _, res := range results {
		switch res.Status {
		case StageFailed, StageBlocked:
			return RunFailed
		case StageSuccess, StageSatisfied:
		default:
			done = false
		}
	}
	if done {
		return RunCompleted
	}
	return RunInProgress
}
