package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"authorship/internal/artifact"
	"authorship/internal/failure"
	"authorship/internal/logging"
	"authorship/internal/stage"
)

// Recorder persists stage outcomes, typically to the run ledger.
type Recorder interface {
	RecordStage(ctx context.Context, runID string, result stage.Result) error
}

// Options controls stage execution.
type Options struct {
	Logger   *slog.Logger
	Handler  stage.Handler
	Enabled  bool
	Recorder Recorder
	Now      func() time.Time
}

// Run executes or loads one stage and reports its outcome. Enabled stages
// recompute; disabled stages load their cached outputs. The returned error
// is a *failure.StageError when the stage fails.
func Run(ctx context.Context, opts Options) (stage.Result, error) {
	if opts.Handler == nil {
		return stage.Result{Status: stage.StatusFailed}, errors.New("stage handler unavailable")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	name := opts.Handler.Name()
	stageCtx := logging.WithStage(ctx, string(name))
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	result := stage.Result{Stage: name, StartedAt: now().UTC()}
	var err error
	if opts.Enabled {
		stageLogger.Info(
			"stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String("mode", "recompute"),
		)
		err = opts.Handler.Compute(stageCtx)
		result.Status = stage.StatusRecomputed
	} else {
		err = opts.Handler.Load(stageCtx)
		result.Status = stage.StatusSkipped
	}
	result.Duration = time.Since(result.StartedAt)
	result.Artifacts = opts.Handler.Outputs()

	if err != nil {
		err = handleFailure(stageLogger, name, &result, err)
	} else if opts.Enabled {
		stageLogger.Info(
			"stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Int("artifacts", len(result.Artifacts)),
			logging.String("artifact_names", refNames(result.Artifacts)),
			logging.Duration("stage_duration", result.Duration),
		)
	} else {
		stageLogger.Info(
			"stage skipped",
			logging.String(logging.FieldEventType, "stage_skip"),
			logging.String("reason", "disabled; loaded cached artifacts"),
			logging.String("artifact_names", refNames(result.Artifacts)),
		)
	}

	if opts.Recorder != nil {
		runID, _ := logging.RunIDFromContext(ctx)
		if recErr := opts.Recorder.RecordStage(stageCtx, runID, result); recErr != nil {
			logging.WarnWithContext(stageLogger, "stage result not recorded", "ledger_write_failed",
				logging.Error(recErr),
				logging.String(logging.FieldErrorHint, "check the ledger database path and permissions"),
				logging.String(logging.FieldImpact, "run history will be incomplete"),
			)
		}
	}
	return result, err
}

func handleFailure(logger *slog.Logger, name stage.Name, result *stage.Result, stageErr error) error {
	result.Status = stage.StatusFailed
	stageFailure := &failure.StageError{Stage: string(name), Err: stageErr}
	var missing *failure.MissingArtifactError
	if errors.As(stageErr, &missing) {
		stageFailure.Artifact = missing.Artifact
	}
	result.Err = stageFailure
	result.Error = strings.TrimSpace(stageErr.Error())

	if errors.Is(stageErr, context.Canceled) {
		logger.Warn("stage interrupted",
			logging.String(logging.FieldEventType, "stage_cancelled"),
			logging.String(logging.FieldErrorHint, "rerun to resume; completed stages are cached"),
			logging.String(logging.FieldImpact, "downstream stages did not run"),
		)
		return stageFailure
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorHint, failure.Hint(stageErr)),
		logging.Error(stageErr),
	}
	if stageFailure.Artifact != "" {
		attrs = append(attrs,
			logging.String(logging.FieldArtifact, stageFailure.Artifact),
			logging.String(logging.FieldFingerprint, artifact.Short(missing.Fingerprint)),
		)
	}
	logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	return stageFailure
}

func refNames(refs []stage.Ref) string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, fmt.Sprintf("%s@%s", ref.Name, artifact.Short(ref.Fingerprint)))
	}
	return strings.Join(names, ",")
}
