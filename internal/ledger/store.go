package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"authorship/internal/model"
	"authorship/internal/stage"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunAbandoned RunStatus = "abandoned"
)

// Run is one recorded pipeline run.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Status        RunStatus
	Seed          int64
	Corpus        string
	EnabledStages []string
	Models        []string
	ErrorMessage  string
	Stages        []stage.Result
}

// EvaluationRow is one headline metrics row.
type EvaluationRow struct {
	Architecture string
	Partition    string
	Samples      int
	Accuracy     float64
	MacroF1      float64
	LogLoss      float64
	Model        string
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
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
func (s *Store) Path() string { return s.path }

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, seed, corpus_fingerprint, enabled_stages, models)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		RunRunning,
		run.Seed,
		nullableString(run.Corpus),
		strings.Join(run.EnabledStages, ","),
		strings.Join(run.Models, ","),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordStage stores a stage outcome and the artifacts it touched.
func (s *Store) RecordStage(ctx context.Context, runID string, result stage.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stage tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO stage_results (run_id, stage, status, started_at, duration_ms, error_message)
         VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		string(result.Stage),
		string(result.Status),
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.Duration.Milliseconds(),
		nullableString(result.Error),
	); err != nil {
		return fmt.Errorf("insert stage result: %w", err)
	}
	if result.Status != stage.StatusFailed {
		for _, ref := range result.Artifacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO run_artifacts (run_id, stage, name, kind, fingerprint) VALUES (?, ?, ?, ?, ?)`,
				runID, string(result.Stage), ref.Name, string(ref.Kind), ref.Fingerprint,
			); err != nil {
				return fmt.Errorf("insert run artifact: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stage result: %w", err)
	}
	return nil
}

// RecordEvaluation stores headline metrics for both held-out partitions.
func (s *Store) RecordEvaluation(ctx context.Context, runID string, ev model.Evaluation) error {
	rows := []struct {
		partition string
		m         model.Metrics
	}{
		{"validation", ev.Validation},
		{"test", ev.Test},
	}
	for _, row := range rows {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO evaluations (run_id, architecture, partition, samples, accuracy, macro_f1, log_loss, model_fingerprint)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, string(ev.Architecture), row.partition, row.m.Samples, row.m.Accuracy, row.m.MacroF1, row.m.LogLoss, ev.Model,
		); err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
	}
	return nil
}

// FinishRun closes a run with its terminal status.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, message string, finished time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		status, finished.UTC().Format(time.RFC3339Nano), nullableString(message), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// MarkAbandoned flags runs still marked running. Callers must hold the
// artifact store lock so no live run is affected.
func (s *Store) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_message = 'process exited before the run finished' WHERE status = ?`,
		RunAbandoned, RunRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	return res.RowsAffected()
}

// ListRuns returns the most recent runs first, without stage detail.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// GetRun returns a run with its stage results, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, started_at, duration_ms, error_message FROM stage_results WHERE run_id = ? ORDER BY started_at, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name, status, started string
			durationMS            int64
			errMsg                sql.NullString
		)
		if err := rows.Scan(&name, &status, &started, &durationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		result := stage.Result{
			Stage:     stage.Name(name),
			Status:    stage.Status(status),
			StartedAt: parseTime(started),
			Duration:  time.Duration(durationMS) * time.Millisecond,
			Error:     errMsg.String,
		}
		run.Stages = append(run.Stages, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	artifacts, err := s.runArtifacts(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range run.Stages {
		run.Stages[i].Artifacts = artifacts[run.Stages[i].Stage]
	}
	return run, nil
}

// Evaluations returns the metrics rows recorded for a run.
func (s *Store) Evaluations(ctx context.Context, runID string) ([]EvaluationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT architecture, partition, samples, accuracy, macro_f1, log_loss, model_fingerprint
         FROM evaluations WHERE run_id = ? ORDER BY architecture, partition DESC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	defer rows.Close()
	var out []EvaluationRow
	for rows.Next() {
		var row EvaluationRow
		if err := rows.Scan(&row.Architecture, &row.Partition, &row.Samples, &row.Accuracy, &row.MacroF1, &row.LogLoss, &row.Model); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LatestArtifacts maps artifact name to fingerprint for the most recent
// successful run. Pruning uses it to keep the artifacts that run needs.
func (s *Store) LatestArtifacts(ctx context.Context) (map[string]string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE status = ? ORDER BY started_at DESC, id DESC LIMIT 1`, RunSucceeded).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	byStage, err := s.runArtifacts(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, refs := range byStage {
		for _, ref := range refs {
			out[ref.Name] = ref.Fingerprint
		}
	}
	return out, nil
}

func (s *Store) runArtifacts(ctx context.Context, runID string) (map[stage.Name][]stage.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, name, kind, fingerprint FROM run_artifacts WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run artifacts: %w", err)
	}
	defer rows.Close()
	out := make(map[stage.Name][]stage.Ref)
	for rows.Next() {
		var st, name, kind, fp string
		if err := rows.Scan(&st, &name, &kind, &fp); err != nil {
			return nil, fmt.Errorf("scan run artifact: %w", err)
		}
		out[stage.Name(st)] = append(out[stage.Name(st)], stage.Ref{Name: name, Kind: artifactKind(kind), Fingerprint: fp})
	}
	return out, rows.Err()
}
