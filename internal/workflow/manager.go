package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"authorship/internal/artifact"
	"authorship/internal/config"
	"authorship/internal/failure"
	"authorship/internal/ledger"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/model/catalog"
	"authorship/internal/stage"
	"authorship/internal/stageexec"
)

// Ledger is the run history the manager records into.
type Ledger interface {
	stageexec.Recorder
	BeginRun(ctx context.Context, run ledger.Run) error
	RecordEvaluation(ctx context.Context, runID string, ev model.Evaluation) error
	FinishRun(ctx context.Context, runID string, status ledger.RunStatus, message string, finished time.Time) error
	MarkAbandoned(ctx context.Context) (int64, error)
}

// Manager runs the staged pipeline against one artifact store.
type Manager struct {
	cfg      *config.Config
	store    *artifact.Store
	ledger   Ledger
	registry *model.Registry
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLedger records run history into l.
func WithLedger(l Ledger) Option {
	return func(m *Manager) { m.ledger = l }
}

// WithRegistry replaces the built-in architecture catalog.
func WithRegistry(r *model.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *artifact.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = catalog.Registry(cfg.Models)
	}
	return m
}

// Outcome is the result of one run.
type Outcome struct {
	Report      stage.Report
	Plan        Plan
	Evaluations []model.Evaluation
	Dropped     []string
}

// Plan digests the corpus inputs and derives every artifact fingerprint.
func (m *Manager) Plan() (Plan, error) {
	inputs, err := DigestInputs(m.cfg)
	if err != nil {
		return Plan{}, err
	}
	return NewPlan(m.cfg, m.registry, inputs)
}

// Enabled reports whether the config enables stage name.
func (m *Manager) Enabled(name stage.Name) bool {
	st := m.cfg.Stages
	switch name {
	case stage.EDA:
		return st.EnableEDA
	case stage.Preprocessing:
		return st.EnablePreprocessing
	case stage.FeatureEngineering:
		return st.EnableFeatureEngineering
	case stage.Training:
		return st.EnableTraining
	case stage.Evaluation:
		return st.EnableEvaluation
	default:
		return false
	}
}

// Run executes the pipeline. On failure the returned outcome still carries
// the partial report, and the error is a *failure.StageError naming the stage
// that halted the run.
func (m *Manager) Run(ctx context.Context) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.cfg.RequireCorpus(); err != nil {
		return nil, err
	}
	if err := m.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	runID := m.newRunID()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, m.logger)

	unlock, err := m.store.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("artifact lock release failed", logging.Error(err))
		}
	}()
	m.reclaimAbandoned(ctx, logger)

	if err := m.checkEnvironment(ctx, logger); err != nil {
		return nil, err
	}
	plan, err := m.Plan()
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Plan: plan, Report: stage.Report{RunID: runID, StartedAt: m.now().UTC()}}
	m.beginRun(ctx, logger, plan, outcome.Report.StartedAt)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("corpus", artifact.Short(plan.Corpus)),
		logging.Any("enabled_stages", m.enabledStages()),
		logging.Any("models", plan.Architectures),
		logging.Int64("seed", m.cfg.Split.Seed),
	)

	runErr := m.checkArtifacts(ctx, logger, plan, &outcome.Report)
	if runErr == nil {
		st := &state{
			cfg:      m.cfg,
			store:    m.store,
			registry: m.registry,
			ledger:   m.ledger,
			plan:     plan,
			runID:    runID,
			logger:   logger,
			models:   make(map[model.Architecture]*model.Artifact),
		}
		runErr = m.execute(ctx, st, &outcome.Report)
		outcome.Evaluations = st.evaluations
		outcome.Dropped = st.dropped
	}
	outcome.Report.FinishedAt = m.now().UTC()
	m.finishRun(ctx, logger, runID, runErr, outcome.Report.FinishedAt)

	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failure",
			logging.String("summary", outcome.Report.Summary()),
			logging.String(logging.FieldErrorHint, failure.Hint(runErr)),
			logging.Error(runErr),
		)
		return outcome, runErr
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("summary", outcome.Report.Summary()),
		logging.Duration("run_duration", outcome.Report.FinishedAt.Sub(outcome.Report.StartedAt)),
	)
	return outcome, nil
}

func (m *Manager) execute(ctx context.Context, st *state, report *stage.Report) error {
	var recorder stageexec.Recorder
	if m.ledger != nil {
		recorder = m.ledger
	}
	for _, handler := range st.handlers() {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := stageexec.Run(ctx, stageexec.Options{
			Logger:   st.logger,
			Handler:  handler,
			Enabled:  m.Enabled(handler.Name()),
			Recorder: recorder,
			Now:      m.now,
		})
		report.Results = append(report.Results, result)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) enabledStages() []string {
	var out []string
	for _, name := range stage.Order() {
		if m.Enabled(name) {
			out = append(out, string(name))
		}
	}
	return out
}

func (m *Manager) reclaimAbandoned(ctx context.Context, logger *slog.Logger) {
	if m.ledger == nil {
		return
	}
	n, err := m.ledger.MarkAbandoned(ctx)
	if err != nil {
		logger.Warn("ledger reclaim failed", logging.Error(err))
		return
	}
	if n > 0 {
		logger.Info("abandoned runs marked", logging.Int64("runs", n))
	}
}

func (m *Manager) beginRun(ctx context.Context, logger *slog.Logger, plan Plan, started time.Time) {
	if m.ledger == nil {
		return
	}
	models := make([]string, len(plan.Architectures))
	for i, a := range plan.Architectures {
		models[i] = string(a)
	}
	runID, _ := logging.RunIDFromContext(ctx)
	if err := m.ledger.BeginRun(ctx, ledger.Run{
		ID:            runID,
		StartedAt:     started,
		Seed:          m.cfg.Split.Seed,
		Corpus:        plan.Corpus,
		EnabledStages: m.enabledStages(),
		Models:        models,
	}); err != nil {
		logging.WarnWithContext(logger, "run not recorded", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history will be incomplete"),
		)
	}
}

func (m *Manager) finishRun(ctx context.Context, logger *slog.Logger, runID string, runErr error, finished time.Time) {
	if m.ledger == nil {
		return
	}
	status, message := ledger.RunSucceeded, ""
	if runErr != nil {
		status, message = ledger.RunFailed, runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			status = ledger.RunAbandoned
		}
	}
	// The run context may already be cancelled; the ledger row should still close.
	if err := m.ledger.FinishRun(context.WithoutCancel(ctx), runID, status, message, finished); err != nil {
		logger.Warn("run completion not recorded", logging.Error(fmt.Errorf("finish run %s: %w", runID, err)))
	}
}
