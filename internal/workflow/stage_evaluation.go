package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"authorship/internal/artifact"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/stage"
)

type evaluationStage struct {
	s      *state
	logger *slog.Logger
}

func (h *evaluationStage) Name() stage.Name { return stage.Evaluation }

func (h *evaluationStage) Outputs() []stage.Ref { return h.s.plan.Outputs(stage.Evaluation) }

func (h *evaluationStage) SetLogger(logger *slog.Logger) { h.logger = logger }

func (h *evaluationStage) Compute(ctx context.Context) error {
	_, validation, test, err := h.s.datasets()
	if err != nil {
		return err
	}
	for _, arch := range h.s.plan.Architectures {
		trained := h.s.models[arch]
		if trained == nil {
			return fmt.Errorf("model %s unavailable for evaluation", arch)
		}
		est, err := h.s.estimator(arch)
		if err != nil {
			return err
		}
		ev := model.Evaluation{Architecture: arch, Model: h.s.plan.Models[arch]}
		if ev.Validation, err = est.Evaluate(trained, validation); err != nil {
			return err
		}
		if ev.Test, err = est.Evaluate(trained, test); err != nil {
			return err
		}
		h.logger.Info("model evaluated",
			logging.String(logging.FieldArchitecture, string(arch)),
			logging.Int(logging.FieldSamples, ev.Test.Samples),
			logging.Float64("test_accuracy", ev.Test.Accuracy),
			logging.Float64("test_macro_f1", ev.Test.MacroF1),
			logging.Float64("validation_accuracy", ev.Validation.Accuracy),
		)
		ref := stage.Ref{Name: arch.MetricsName(), Kind: artifact.KindMetrics, Fingerprint: h.s.plan.Metrics[arch]}
		if err := save(ctx, h.s, ref, ev); err != nil {
			return err
		}
		h.record(ctx, ev)
	}
	return nil
}

func (h *evaluationStage) Load(ctx context.Context) error {
	for _, arch := range h.s.plan.Architectures {
		ref := stage.Ref{Name: arch.MetricsName(), Kind: artifact.KindMetrics, Fingerprint: h.s.plan.Metrics[arch]}
		ev, err := loadRequired[model.Evaluation](h.s, stage.Evaluation, ref)
		if err != nil {
			return err
		}
		h.record(ctx, ev)
	}
	return nil
}

func (h *evaluationStage) record(ctx context.Context, ev model.Evaluation) {
	h.s.evaluations = append(h.s.evaluations, ev)
	if h.s.ledger == nil {
		return
	}
	if err := h.s.ledger.RecordEvaluation(ctx, h.s.runID, ev); err != nil {
		logging.WarnWithContext(h.logger, "evaluation not recorded", "ledger_write_failed",
			logging.String(logging.FieldArchitecture, string(ev.Architecture)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history lacks these metrics"),
		)
	}
}
