package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"authorship/internal/artifact"
	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/eda"
	"authorship/internal/failure"
	"authorship/internal/features"
	"authorship/internal/labels"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/split"
	"authorship/internal/stage"
)

// PreparedCorpus is the Preprocessing stage's corpus payload. Raw text is
// not persisted; downstream stages read only cleaned text.
type PreparedCorpus struct {
	Documents []corpus.Document `json:"documents"`
	Dropped   []string          `json:"dropped,omitempty"`
}

// state carries stage outputs, computed or loaded, through one run.
type state struct {
	cfg      *config.Config
	store    *artifact.Store
	registry *model.Registry
	ledger   Ledger
	plan     Plan
	runID    string
	logger   *slog.Logger

	raw         *corpus.Corpus
	profile     eda.Profile
	prepared    *corpus.Corpus
	dropped     []string
	labels      *labels.Map
	split       split.Split
	parts       *split.Partitioned
	vocab       *features.Vocabulary
	ranking     features.Ranking
	models      map[model.Architecture]*model.Artifact
	evaluations []model.Evaluation
}

func (s *state) handlers() []stage.Handler {
	return []stage.Handler{
		&edaStage{s: s},
		&preprocessStage{s: s},
		&featureStage{s: s},
		&trainingStage{s: s},
		&evaluationStage{s: s},
	}
}

// ref returns the planned output called name of stage st.
func (s *state) ref(st stage.Name, name string) stage.Ref {
	for _, r := range s.plan.Outputs(st) {
		if r.Name == name {
			return r
		}
	}
	return stage.Ref{Name: name}
}

// rawCorpus loads the CSV inputs once per run.
func (s *state) rawCorpus(ctx context.Context) (*corpus.Corpus, error) {
	if s.raw != nil {
		return s.raw, nil
	}
	c, files, err := corpus.LoadGlob(s.cfg.Corpus.Paths, ColumnsFromConfig(s.cfg.Corpus))
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("corpus loaded",
		logging.String(logging.FieldEventType, "corpus_loaded"),
		logging.Int("files", len(files)),
		logging.Int(logging.FieldSamples, c.Len()),
		logging.Int("authors", len(c.Authors())),
	)
	s.raw = c
	return c, nil
}

// partitions resolves the split against the prepared corpus once per run.
func (s *state) partitions() (split.Partitioned, error) {
	if s.parts != nil {
		return *s.parts, nil
	}
	if s.prepared == nil {
		return split.Partitioned{}, fmt.Errorf("prepared corpus unavailable")
	}
	parts, err := s.split.Apply(s.prepared)
	if err != nil {
		return split.Partitioned{}, err
	}
	s.parts = &parts
	return parts, nil
}

func (s *state) datasets() (train, validation, test model.Dataset, err error) {
	parts, err := s.partitions()
	if err != nil {
		return
	}
	if train, err = model.NewDataset(parts.Train.Documents(), s.labels); err != nil {
		return
	}
	if validation, err = model.NewDataset(parts.Validation, s.labels); err != nil {
		return
	}
	test, err = model.NewDataset(parts.Test, s.labels)
	return
}

// estimator builds the registered estimator for arch against the run's
// feature contract.
func (s *state) estimator(arch model.Architecture) (model.Estimator, error) {
	spec, err := s.registry.Lookup(arch)
	if err != nil {
		return nil, err
	}
	return spec.New(model.Env{
		Vocabulary:        s.vocab,
		Ranking:           s.ranking,
		Labels:            s.labels,
		Contract:          s.plan.Contract(),
		Seed:              s.cfg.Split.Seed,
		TopK:              s.cfg.Features.TopKFeatures,
		MaxSequenceLength: s.cfg.Features.MaxSequenceLength,
		Logger:            s.logger,
	})
}

// loadRequired restores a typed payload. An absent artifact is a
// MissingArtifactError naming the stage that owns it.
func loadRequired[T any](s *state, st stage.Name, ref stage.Ref) (T, error) {
	out, ok, err := artifact.LoadJSON[T](s.store, ref.Name, ref.Fingerprint, ref.Kind)
	if err != nil {
		return out, fmt.Errorf("load %s: %w", ref.Name, err)
	}
	if !ok {
		return out, &failure.MissingArtifactError{Stage: string(st), Artifact: ref.Name, Fingerprint: ref.Fingerprint}
	}
	return out, nil
}

func save(ctx context.Context, s *state, ref stage.Ref, payload any) error {
	if _, err := s.store.Save(ctx, ref.Name, ref.Fingerprint, ref.Kind, payload); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Debug("artifact persisted",
		logging.String(logging.FieldEventType, "artifact_saved"),
		logging.String(logging.FieldArtifact, ref.Name),
		logging.String(logging.FieldFingerprint, artifact.Short(ref.Fingerprint)),
	)
	return nil
}
