package workflow

import (
	"context"
	"log/slog"

	"authorship/internal/artifact"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/stage"
)

type trainingStage struct {
	s      *state
	logger *slog.Logger
}

func (h *trainingStage) Name() stage.Name { return stage.Training }

func (h *trainingStage) Outputs() []stage.Ref { return h.s.plan.Outputs(stage.Training) }

func (h *trainingStage) SetLogger(logger *slog.Logger) { h.logger = logger }

func (h *trainingStage) Compute(ctx context.Context) error {
	train, validation, _, err := h.s.datasets()
	if err != nil {
		return err
	}
	for _, arch := range h.s.plan.Architectures {
		est, err := h.s.estimator(arch)
		if err != nil {
			return err
		}
		trained, err := est.Train(ctx, train, validation)
		if err != nil {
			return err
		}
		best := model.Epoch{}
		if n := trained.History.BestEpoch; n > 0 && n <= len(trained.History.Epochs) {
			best = trained.History.Epochs[n-1]
		}
		h.logger.Info("model trained",
			logging.String(logging.FieldArchitecture, string(arch)),
			logging.Int(logging.FieldSamples, train.Len()),
			logging.Int("epochs", len(trained.History.Epochs)),
			logging.Int("best_epoch", trained.History.BestEpoch),
			logging.Float64("validation_accuracy", best.ValidationAccuracy),
			logging.String("stopped", trained.History.Stopped),
		)
		h.s.models[arch] = trained
		ref := stage.Ref{Name: arch.ArtifactName(), Kind: artifact.KindModel, Fingerprint: h.s.plan.Models[arch]}
		if err := save(ctx, h.s, ref, trained); err != nil {
			return err
		}
	}
	return nil
}

func (h *trainingStage) Load(context.Context) error {
	for _, arch := range h.s.plan.Architectures {
		ref := stage.Ref{Name: arch.ArtifactName(), Kind: artifact.KindModel, Fingerprint: h.s.plan.Models[arch]}
		trained, err := loadRequired[model.Artifact](h.s, stage.Training, ref)
		if err != nil {
			return err
		}
		if err := trained.Contract.Check(h.s.plan.Contract()); err != nil {
			return err
		}
		h.s.models[arch] = &trained
	}
	return nil
}
