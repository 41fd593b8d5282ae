package testsupport

import (
	"testing"

	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/features"
	"authorship/internal/labels"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/split"
)

// Fixture carries every upstream artifact a model needs, built in memory
// from a style corpus.
type Fixture struct {
	Corpus     *corpus.Corpus
	Split      split.Split
	Parts      split.Partitioned
	Labels     *labels.Map
	Vocabulary *features.Vocabulary
	Ranking    features.Ranking
	Env        model.Env
	Train      model.Dataset
	Validation model.Dataset
	Test       model.Dataset
}

// NewFixture splits docs and fits features according to cfg.
func NewFixture(t testing.TB, cfg *config.Config, docs []corpus.Document) *Fixture {
	t.Helper()
	c := MustCorpus(t, docs)
	s, err := split.New(c, cfg.Split.Seed, cfg.Split.Proportions)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	parts, err := s.Apply(c)
	if err != nil {
		t.Fatalf("apply split: %v", err)
	}
	lm, err := labels.New(c.Authors())
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	vocab, ranking, err := features.Fit(parts.Train, lm, cfg.Features)
	if err != nil {
		t.Fatalf("fit features: %v", err)
	}

	f := &Fixture{
		Corpus:     c,
		Split:      s,
		Parts:      parts,
		Labels:     lm,
		Vocabulary: vocab,
		Ranking:    ranking,
		Env: model.Env{
			Vocabulary:        vocab,
			Ranking:           ranking,
			Labels:            lm,
			Contract:          model.Contract{Vocabulary: "vocab-fp", Labels: "labels-fp", Ranking: "ranking-fp"},
			Seed:              cfg.Split.Seed,
			TopK:              cfg.Features.TopKFeatures,
			MaxSequenceLength: cfg.Features.MaxSequenceLength,
			Logger:            logging.NewNop(),
		},
	}
	f.Train = mustDataset(t, parts.Train.Documents(), lm)
	f.Validation = mustDataset(t, parts.Validation, lm)
	f.Test = mustDataset(t, parts.Test, lm)
	return f
}

func mustDataset(t testing.TB, docs []corpus.Document, lm *labels.Map) model.Dataset {
	t.Helper()
	ds, err := model.NewDataset(docs, lm)
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	return ds
}
