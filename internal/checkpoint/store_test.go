package checkpoint_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"sdrprep/internal/checkpoint"
	"sdrprep/internal/report"
	"sdrprep/internal/testsupport"
)

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := checkpoint.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	want := report.StageResult{
		StageID:    "sdr-driver",
		Status:     report.StageFailed,
		Attempts:   3,
		ErrKind:    "verification_failed",
		ErrMessage: "probe bladeRF-cli exited 1",
	}
	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.Get(ctx, "sdr-driver")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored result")
	}
	if got.Status != want.Status || got.Attempts != want.Attempts ||
		got.ErrKind != want.ErrKind || got.ErrMessage != want.ErrMessage {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("updated_at should be set")
	}
}

func TestGetUnknownStageIsNil(t *testing.T) {
	store := openStore(t)
	got, err := store.Get(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCompletedStageIsForwardOnly(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, report.StageResult{StageID: "system-update", Status: report.StageSuccess}); err != nil {
		t.Fatalf("record success: %v", err)
	}

	err := store.Record(ctx, report.StageResult{StageID: "system-update", Status: report.StagePending})
	if !errors.Is(err, checkpoint.ErrForwardOnly) {
		t.Fatalf("expected ErrForwardOnly, got %v", err)
	}

	// Success to satisfied (and back) stays legal: both are completed states.
	if err := store.Record(ctx, report.StageResult{StageID: "system-update", Status: report.StageSatisfied}); err != nil {
		t.Fatalf("record satisfied: %v", err)
	}
}

func TestResetRegressesCompletedStage(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, report.StageResult{
		StageID:  "sdr-driver",
		Status:   report.StageSuccess,
		Attempts: 2,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Reset(ctx, "sdr-driver"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, err := store.Get(ctx, "sdr-driver")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != report.StagePending || got.Attempts != 0 {
		t.Fatalf("expected pending with zero attempts, got %+v", got)
	}
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	store := openStore(t)
	err := store.Record(context.Background(), report.StageResult{StageID: "x", Status: "exploded"})
	if err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestNormalizeInterrupted(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	seed := []report.StageResult{
		{StageID: "a", Status: report.StageSuccess},
		{StageID: "b", Status: report.StageRunning},
		{StageID: "c", Status: report.StageInterrupted},
	}
	for _, res := range seed {
		if err := store.Record(ctx, res); err != nil {
			t.Fatalf("record %s: %v", res.StageID, err)
		}
	}

	if err := store.NormalizeInterrupted(ctx); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	results, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if results["a"].Status != report.StageSuccess {
		t.Fatalf("success must survive normalization, got %s", results["a"].Status)
	}
	if results["b"].Status != report.StagePending || results["c"].Status != report.StagePending {
		t.Fatalf("in-flight stages must rewind to pending: b=%s c=%s", results["b"].Status, results["c"].Status)
	}
}

func TestMarkInterrupted(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, report.StageResult{StageID: "b", Status: report.StageRunning}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.MarkInterrupted(ctx); err != nil {
		t.Fatalf("mark interrupted: %v", err)
	}

	got, err := store.Get(ctx, "b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != report.StageInterrupted {
		t.Fatalf("expected interrupted, got %s", got.Status)
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, report.StageResult{StageID: "a", Status: report.StageSuccess}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.SetRunState(ctx, checkpoint.RunState{
		RunID:  report.NewRunID(),
		Status: report.RunCompleted,
	}); err != nil {
		t.Fatalf("set run state: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	results, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	state, err := store.RunState(ctx)
	if err != nil {
		t.Fatalf("run state: %v", err)
	}
	if state != nil {
		t.Fatalf("expected no run state, got %+v", state)
	}
}

func TestRunStateRoundTripAndAckReboot(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	runID := report.NewRunID()
	if err := store.SetRunState(ctx, checkpoint.RunState{
		RunID:          runID,
		Status:         report.RunAwaitingUser,
		AwaitingReboot: true,
		StartedAt:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("set run state: %v", err)
	}

	state, err := store.RunState(ctx)
	if err != nil {
		t.Fatalf("run state: %v", err)
	}
	if state == nil || state.RunID != runID || !state.AwaitingReboot {
		t.Fatalf("unexpected run state: %+v", state)
	}
	if state.Status != report.RunAwaitingUser {
		t.Fatalf("expected awaiting_user, got %s", state.Status)
	}

	if err := store.AckReboot(ctx); err != nil {
		t.Fatalf("ack reboot: %v", err)
	}
	state, err = store.RunState(ctx)
	if err != nil {
		t.Fatalf("run state after ack: %v", err)
	}
	if state.AwaitingReboot {
		t.Fatal("awaiting_reboot should be cleared")
	}

	if err := store.AckReboot(ctx); err == nil {
		t.Fatal("second ack must report nothing pending")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := checkpoint.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Record(context.Background(), report.StageResult{
		StageID: "a", Status: report.StageSuccess,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := checkpoint.Open(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer func() { _ = second.Close() }()

	got, err := second.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Status != report.StageSuccess {
		t.Fatalf("expected persisted success, got %+v", got)
	}
}
