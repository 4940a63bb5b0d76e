package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sdrprep/internal/config"
	"sdrprep/internal/report"
)

// ErrForwardOnly indicates an attempt to regress a completed stage without
// an explicit reset.
var ErrForwardOnly = errors.New("completed stage cannot be regressed")

// Store manages checkpoint persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the checkpoint database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.CheckpointPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record upserts one stage result. Completed stages (success or satisfied)
// are forward-only: writing any other status over them fails with
// ErrForwardOnly. Use Reset for an explicit rollback.
func (s *Store) Record(ctx context.Context, res report.StageResult) error {
	if res.StageID == "" {
		return errors.New("stage id is empty")
	}
	if !report.ValidStageStatus(res.Status) {
		return fmt.Errorf("unknown stage status %q", res.Status)
	}

	existing, err := s.Get(ctx, res.StageID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Status.Done() && !res.Status.Done() {
		return fmt.Errorf("%w: %s is %s", ErrForwardOnly, res.StageID, existing.Status)
	}

	if res.UpdatedAt.IsZero() {
		res.UpdatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO stage_results (stage_id, status, attempts, err_kind, err_message, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(stage_id) DO UPDATE SET
             status = excluded.status,
             attempts = excluded.attempts,
             err_kind = excluded.err_kind,
             err_message = excluded.err_message,
             updated_at = excluded.updated_at`,
		res.StageID,
		string(res.Status),
		res.Attempts,
		nullableString(res.ErrKind),
		nullableString(res.ErrMessage),
		res.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record stage %s: %w", res.StageID, err)
	}
	return nil
}

// Get fetches one stage result, nil when the stage has never been recorded.
func (s *Store) Get(ctx context.Context, stageID string) (*report.StageResult, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT stage_id, status, attempts, err_kind, err_message, updated_at
         FROM stage_results WHERE stage_id = ?`,
		stageID,
	)
	res, err := scanStageResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage %s: %w", stageID, err)
	}
	return res, nil
}

// Load returns every recorded stage result keyed by stage id. Rows with an
// unrecognized status are surfaced as pending so a tampered or corrupt
// database degrades to re-running stages rather than skipping them.
func (s *Store) Load(ctx context.Context) (map[string]report.StageResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT stage_id, status, attempts, err_kind, err_message, updated_at FROM stage_results`,
	)
	if err != nil {
		return nil, fmt.Errorf("load stage results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]report.StageResult)
	for rows.Next() {
		res, err := scanStageResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		if !report.ValidStageStatus(res.Status) {
			res.Status = report.StagePending
			res.Attempts = 0
		}
		out[res.StageID] = *res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage results: %w", err)
	}
	return out, nil
}

// Reset forces one stage back to pending with zeroed attempts. This is the
// only sanctioned way to regress a completed stage.
func (s *Store) Reset(ctx context.Context, stageID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO stage_results (stage_id, status, attempts, err_kind, err_message, updated_at)
         VALUES (?, ?, 0, NULL, NULL, ?)
         ON CONFLICT(stage_id) DO UPDATE SET
             status = excluded.status,
             attempts = 0,
             err_kind = NULL,
             err_message = NULL,
             updated_at = excluded.updated_at`,
		stageID,
		string(report.StagePending),
		now,
	)
	if err != nil {
		return fmt.Errorf("reset stage %s: %w", stageID, err)
	}
	return nil
}

// NormalizeInterrupted rewinds stages caught mid-flight by a crash or
// interrupt back to pending. Called at the start of every run.
func (s *Store) NormalizeInterrupted(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE stage_results SET status = ?, updated_at = ? WHERE status IN (?, ?)`,
		string(report.StagePending),
		now,
		string(report.StageRunning),
		string(report.StageInterrupted),
	)
	if err != nil {
		return fmt.Errorf("normalize interrupted stages: %w", err)
	}
	return nil
}

// MarkInterrupted flags any in-flight stage before shutdown so the next run
// knows it must be redone.
func (s *Store) MarkInterrupted(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE stage_results SET status = ?, updated_at = ? WHERE status = ?`,
		string(report.StageInterrupted),
		now,
		string(report.StageRunning),
	)
	if err != nil {
		return fmt.Errorf("mark interrupted stages: %w", err)
	}
	return nil
}

// Clear removes every checkpoint row, including the run state.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_results`); err != nil {
		return fmt.Errorf("clear stage results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_state`); err != nil {
		return fmt.Errorf("clear run state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

// SetRunState upserts the singleton run-state row.
func (s *Store) SetRunState(ctx context.Context, state RunState) error {
	now := time.Now().UTC()
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = now
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_state (id, run_id, run_status, awaiting_reboot, started_at, updated_at)
         VALUES (1, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             run_id = excluded.run_id,
             run_status = excluded.run_status,
             awaiting_reboot = excluded.awaiting_reboot,
             started_at = excluded.started_at,
             updated_at = excluded.updated_at`,
		nullableString(state.RunID),
		string(state.Status),
		boolToInt(state.AwaitingReboot),
		nullableTime(state.StartedAt),
		state.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set run state: %w", err)
	}
	return nil
}

// RunState fetches the singleton run-state row, nil when no run has ever
// been recorded.
func (s *Store) RunState(ctx context.Context) (*RunState, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT run_id, run_status, awaiting_reboot, started_at, updated_at FROM run_state WHERE id = 1`,
	)

	var (
		runID     sql.NullString
		status    string
		awaiting  int
		startedAt sql.NullString
		updatedAt string
	)
	err := row.Scan(&runID, &status, &awaiting, &startedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run state: %w", err)
	}

	state := &RunState{
		RunID:          runID.String,
		Status:         report.RunStatus(status),
		AwaitingReboot: awaiting != 0,
	}
	if startedAt.Valid {
		if ts, parseErr := time.Parse(time.RFC3339Nano, startedAt.String); parseErr == nil {
			state.StartedAt = ts
		}
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		state.UpdatedAt = ts
	}
	return state, nil
}

// AckReboot clears the awaiting-reboot flag after the user confirms the
// relogin or reboot happened.
func (s *Store) AckReboot(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE run_state SET awaiting_reboot = 0, updated_at = ? WHERE id = 1 AND awaiting_reboot = 1`,
		now,
	)
	if err != nil {
		return fmt.Errorf("ack reboot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ack reboot rows: %w", err)
	}
	if affected == 0 {
		return errors.New("no reboot acknowledgement pending")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStageResult(row rowScanner) (*report.StageResult, error) {
	var (
		res        report.StageResult
		status     string
		errKind    sql.NullString
		errMessage sql.NullString
		updatedAt  string
	)
	if err := row.Scan(&res.StageID, &status, &res.Attempts, &errKind, &errMessage, &updatedAt); err != nil {
		return nil, err
	}
	res.Status = report.StageStatus(status)
	res.ErrKind = errKind.String
	res.ErrMessage = errMessage.String
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		res.UpdatedAt = ts
	}
	return &res, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
