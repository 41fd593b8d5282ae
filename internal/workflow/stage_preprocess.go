package workflow

import (
	"context"
	"log/slog"
	"strings"

	"authorship/internal/corpus"
	"authorship/internal/labels"
	"authorship/internal/logging"
	"authorship/internal/split"
	"authorship/internal/stage"
)

type preprocessStage struct {
	s      *state
	logger *slog.Logger
}

func (h *preprocessStage) Name() stage.Name { return stage.Preprocessing }

func (h *preprocessStage) Outputs() []stage.Ref { return h.s.plan.Outputs(stage.Preprocessing) }

func (h *preprocessStage) SetLogger(logger *slog.Logger) { h.logger = logger }

func (h *preprocessStage) Compute(ctx context.Context) error {
	raw, err := h.s.rawCorpus(ctx)
	if err != nil {
		return err
	}
	prepared, dropped, err := corpus.Prepare(raw)
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		logging.WarnWithContext(h.logger, "documents dropped during normalisation", "preprocess_dropped",
			logging.Int("count", len(dropped)),
			logging.String("examples", strings.Join(firstN(dropped, 5), ",")),
			logging.String(logging.FieldErrorHint, "these rows have no text after normalisation"),
			logging.String(logging.FieldImpact, "dropped documents are excluded from every partition"),
		)
	}
	if err := h.s.profile.CheckAuthors(prepared); err != nil {
		return err
	}
	lm, err := labels.New(prepared.Authors())
	if err != nil {
		return err
	}
	sp, err := split.New(prepared, h.s.cfg.Split.Seed, h.s.cfg.Split.Proportions)
	if err != nil {
		return err
	}

	h.logger.Info("corpus partitioned",
		logging.Int(logging.FieldSamples, prepared.Len()),
		logging.Int(logging.FieldClasses, lm.Len()),
		logging.Int("train", len(sp.Train)),
		logging.Int("validation", len(sp.Validation)),
		logging.Int("test", len(sp.Test)),
	)
	for author, counts := range sp.Counts(prepared) {
		h.logger.Debug("author allocation",
			logging.String("author", author),
			logging.Int("train", counts[split.Train]),
			logging.Int("validation", counts[split.Validation]),
			logging.Int("test", counts[split.Test]),
		)
	}

	h.s.prepared, h.s.dropped, h.s.labels, h.s.split = prepared, dropped, lm, sp
	docs := prepared.Documents()
	for i := range docs {
		docs[i].Raw = ""
	}
	if err := save(ctx, h.s, h.s.ref(stage.Preprocessing, PreparedArtifact), PreparedCorpus{Documents: docs, Dropped: dropped}); err != nil {
		return err
	}
	if err := save(ctx, h.s, h.s.ref(stage.Preprocessing, LabelsArtifact), lm.Payload()); err != nil {
		return err
	}
	return save(ctx, h.s, h.s.ref(stage.Preprocessing, SplitArtifact), sp)
}

func (h *preprocessStage) Load(context.Context) error {
	payload, err := loadRequired[PreparedCorpus](h.s, stage.Preprocessing, h.s.ref(stage.Preprocessing, PreparedArtifact))
	if err != nil {
		return err
	}
	lp, err := loadRequired[labels.Payload](h.s, stage.Preprocessing, h.s.ref(stage.Preprocessing, LabelsArtifact))
	if err != nil {
		return err
	}
	sp, err := loadRequired[split.Split](h.s, stage.Preprocessing, h.s.ref(stage.Preprocessing, SplitArtifact))
	if err != nil {
		return err
	}
	prepared, err := corpus.New(payload.Documents)
	if err != nil {
		return err
	}
	lm, err := labels.FromPayload(lp)
	if err != nil {
		return err
	}
	if err := sp.Verify(prepared); err != nil {
		return err
	}
	h.s.prepared, h.s.dropped, h.s.labels, h.s.split = prepared, payload.Dropped, lm, sp
	return nil
}
