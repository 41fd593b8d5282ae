package workflow

import (
	"context"
	"log/slog"

	"authorship/internal/features"
	"authorship/internal/logging"
	"authorship/internal/stage"
)

type featureStage struct {
	s      *state
	logger *slog.Logger
}

func (h *featureStage) Name() stage.Name { return stage.FeatureEngineering }

func (h *featureStage) Outputs() []stage.Ref { return h.s.plan.Outputs(stage.FeatureEngineering) }

func (h *featureStage) SetLogger(logger *slog.Logger) { h.logger = logger }

func (h *featureStage) Compute(ctx context.Context) error {
	parts, err := h.s.partitions()
	if err != nil {
		return err
	}
	vocab, ranking, err := features.Fit(parts.Train, h.s.labels, h.s.cfg.Features)
	if err != nil {
		return err
	}
	top := ranking.Top(5)
	terms := make([]string, len(top))
	for i, sc := range top {
		terms[i] = sc.Term
	}
	h.logger.Info("features fitted",
		logging.Int(logging.FieldSamples, parts.Train.Len()),
		logging.Int(logging.FieldFeatures, vocab.Len()),
		logging.Int("ranked", ranking.Len()),
		logging.Any("top_terms", terms),
	)

	h.s.vocab, h.s.ranking = vocab, ranking
	if err := save(ctx, h.s, h.s.ref(stage.FeatureEngineering, VocabularyArtifact), vocab.Payload()); err != nil {
		return err
	}
	return save(ctx, h.s, h.s.ref(stage.FeatureEngineering, RankingArtifact), ranking)
}

func (h *featureStage) Load(context.Context) error {
	vp, err := loadRequired[features.VocabularyPayload](h.s, stage.FeatureEngineering, h.s.ref(stage.FeatureEngineering, VocabularyArtifact))
	if err != nil {
		return err
	}
	ranking, err := loadRequired[features.Ranking](h.s, stage.FeatureEngineering, h.s.ref(stage.FeatureEngineering, RankingArtifact))
	if err != nil {
		return err
	}
	vocab, err := features.VocabularyFromPayload(vp)
	if err != nil {
		return err
	}
	if err := ranking.Validate(vocab); err != nil {
		return err
	}
	h.s.vocab, h.s.ranking = vocab, ranking
	return nil
}
