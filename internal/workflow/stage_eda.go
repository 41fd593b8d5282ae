package workflow

import (
	"context"
	"log/slog"
	"strings"

	"authorship/internal/eda"
	"authorship/internal/logging"
	"authorship/internal/stage"
)

type edaStage struct {
	s      *state
	logger *slog.Logger
}

func (h *edaStage) Name() stage.Name { return stage.EDA }

func (h *edaStage) Outputs() []stage.Ref { return h.s.plan.Outputs(stage.EDA) }

func (h *edaStage) SetLogger(logger *slog.Logger) { h.logger = logger }

func (h *edaStage) Compute(ctx context.Context) error {
	raw, err := h.s.rawCorpus(ctx)
	if err != nil {
		return err
	}
	profile, err := eda.Build(raw, eda.DefaultTopTerms)
	if err != nil {
		return err
	}
	if len(profile.EmptyTexts) > 0 {
		logging.WarnWithContext(h.logger, "documents with empty text", "eda_empty_texts",
			logging.Int("count", len(profile.EmptyTexts)),
			logging.String("examples", strings.Join(firstN(profile.EmptyTexts, 5), ",")),
			logging.String(logging.FieldErrorHint, "clean or remove these rows in the source CSV"),
			logging.String(logging.FieldImpact, "preprocessing drops them"),
		)
	}
	if conflicts := profile.ConflictingDuplicates(); len(conflicts) > 0 {
		logging.WarnWithContext(h.logger, "identical passages attributed to different authors", "eda_conflicting_duplicates",
			logging.Int("groups", len(conflicts)),
			logging.String("examples", strings.Join(conflicts[0].IDs, ",")),
			logging.String(logging.FieldErrorHint, "deduplicate the corpus"),
			logging.String(logging.FieldImpact, "labels are noisy for these passages"),
		)
	}
	h.logger.Info("corpus profiled",
		logging.Int(logging.FieldSamples, profile.Documents),
		logging.Int("authors", len(profile.Authors)),
		logging.Int("vocabulary", profile.Vocabulary),
		logging.Float64("imbalance", profile.Imbalance),
	)
	h.s.profile = profile
	return save(ctx, h.s, h.s.ref(stage.EDA, ProfileArtifact), profile)
}

func (h *edaStage) Load(context.Context) error {
	profile, err := loadRequired[eda.Profile](h.s, stage.EDA, h.s.ref(stage.EDA, ProfileArtifact))
	if err != nil {
		return err
	}
	h.s.profile = profile
	return nil
}

func firstN(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
