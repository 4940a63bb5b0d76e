package report_test

import (
	"testing"

	"sdrprep/internal/report"
)

func TestSummarizeCompleted(t *testing.T) {
	results := []report.StageResult{
		{StageID: "a", Status: report.StageSuccess},
		{StageID: "b", Status: report.StageSatisfied},
	}
	if got := report.Summarize(results, false); got != report.RunCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestSummarizeFailedWinsOverPending(t *testing.T) {
	results := []report.StageResult{
		{StageID: "a", Status: report.StageSuccess},
		{StageID: "b", Status: report.StageFailed},
		{StageID: "c", Status: report.StagePending},
	}
	if got := report.Summarize(results, false); got != report.RunFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestSummarizeBlockedIsFailure(t *testing.T) {
	results := []report.StageResult{
		{StageID: "a", Status: report.StageBlocked},
	}
	if got := report.Summarize(results, false); got != report.RunFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func TestSummarizeAwaitingUserTakesPrecedence(t *testing.T) {
	results := []report.StageResult{
		{StageID: "a", Status: report.StageSuccess},
		{StageID: "b", Status: report.StagePending},
	}
	if got := report.Summarize(results, true); got != report.RunAwaitingUser {
		t.Fatalf("expected awaiting_user, got %s", got)
	}
}

func TestSummarizeInProgress(t *testing.T) {
	results := []report.StageResult{
		{StageID: "a", Status: report.StageSuccess},
		{StageID: "b", Status: report.StagePending},
	}
	if got := report.Summarize(results, false); got != report.RunInProgress {
		t.Fatalf("expected in_progress, got %s", got)
	}
}

func TestValidStageStatus(t *testing.T) {
	if !report.ValidStageStatus(report.StageBlocked) {
		t.Fatal("blocked should be valid")
	}
	if report.ValidStageStatus("exploded") {
		t.Fatal("unknown status should be invalid")
	}
}

func TestStageStatusDone(t *testing.T) {
	if !report.StageSuccess.Done() || !report.StageSatisfied.Done() {
		t.Fatal("success and satisfied are done")
	}
	if report.StageFailed.Done() || report.StagePending.Done() {
		t.Fatal("failed and pending are not done")
	}
}
