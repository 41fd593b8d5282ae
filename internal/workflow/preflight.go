package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"authorship/internal/artifact"
	"authorship/internal/failure"
	"authorship/internal/logging"
	"authorship/internal/preflight"
	"authorship/internal/stage"
)

// checkEnvironment validates filesystem readiness before anything is computed.
func (m *Manager) checkEnvironment(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, m.cfg)
	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(failures, "; "))
	}
	return nil
}

// checkArtifacts verifies every disabled stage's outputs are cached before
// any stage runs, so a missing artifact costs no computation.
func (m *Manager) checkArtifacts(ctx context.Context, logger *slog.Logger, plan Plan, report *stage.Report) error {
	for _, name := range stage.Order() {
		if m.Enabled(name) {
			continue
		}
		for _, ref := range plan.Outputs(name) {
			ok, err := m.store.Check(ref.Name, ref.Fingerprint, ref.Kind)
			if ok {
				continue
			}
			cause := err
			if cause == nil {
				cause = &failure.MissingArtifactError{Stage: string(name), Artifact: ref.Name, Fingerprint: ref.Fingerprint}
			}
			stageErr := &failure.StageError{Stage: string(name), Artifact: ref.Name, Err: cause}
			logging.ErrorWithContext(logging.WithContext(logging.WithStage(ctx, string(name)), logger),
				"cached artifact unusable for disabled stage", "preflight_missing_artifact",
				logging.String(logging.FieldArtifact, ref.Name),
				logging.String(logging.FieldFingerprint, artifact.Short(ref.Fingerprint)),
				logging.String(logging.FieldErrorHint, failure.Hint(cause)),
			)
			result := stage.Result{
				Stage:     name,
				Status:    stage.StatusFailed,
				StartedAt: m.now().UTC(),
				Artifacts: plan.Outputs(name),
				Error:     cause.Error(),
				Err:       stageErr,
			}
			report.Results = append(report.Results, result)
			if m.ledger != nil {
				runID, _ := logging.RunIDFromContext(ctx)
				if err := m.ledger.RecordStage(ctx, runID, result); err != nil {
					logger.Warn("stage result not recorded", logging.Error(err))
				}
			}
			return stageErr
		}
	}
	return nil
}
