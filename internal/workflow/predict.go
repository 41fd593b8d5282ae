package workflow

import (
	"slices"
	"strconv"
	"strings"

	"authorship/internal/artifact"
	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/features"
	"authorship/internal/labels"
	"authorship/internal/model"
	"authorship/internal/stage"
	"authorship/internal/textutil"
)

// AuthorScore is one class probability.
type AuthorScore struct {
	Author      string  `json:"author"`
	Probability float64 `json:"probability"`
}

// Prediction is the attributed author of one text.
type Prediction struct {
	Author     string        `json:"author"`
	Confidence float64       `json:"confidence"`
	Scores     []AuthorScore `json:"scores"`
}

// Predictor attributes unseen texts with a cached model.
type Predictor struct {
	arch      model.Architecture
	estimator model.Estimator
	artifact  *model.Artifact
	labels    *labels.Map
}

// Predictor restores the artifacts planned for arch under the current
// configuration. Every artifact must already be cached.
func (m *Manager) Predictor(arch model.Architecture) (*Predictor, error) {
	plan, err := m.Plan()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(plan.Architectures, arch) {
		return nil, failure.Configf("models", "model %q is not enabled", arch)
	}
	s := &state{cfg: m.cfg, store: m.store, registry: m.registry, plan: plan, logger: m.logger}

	labelPayload, err := loadRequired[labels.Payload](s, stage.Preprocessing, s.ref(stage.Preprocessing, LabelsArtifact))
	if err != nil {
		return nil, err
	}
	if s.labels, err = labels.FromPayload(labelPayload); err != nil {
		return nil, err
	}
	vocabPayload, err := loadRequired[features.VocabularyPayload](s, stage.FeatureEngineering, s.ref(stage.FeatureEngineering, VocabularyArtifact))
	if err != nil {
		return nil, err
	}
	if s.vocab, err = features.VocabularyFromPayload(vocabPayload); err != nil {
		return nil, err
	}
	if s.ranking, err = loadRequired[features.Ranking](s, stage.FeatureEngineering, s.ref(stage.FeatureEngineering, RankingArtifact)); err != nil {
		return nil, err
	}
	if err := s.ranking.Validate(s.vocab); err != nil {
		return nil, err
	}
	ref := stage.Ref{Name: arch.ArtifactName(), Kind: artifact.KindModel, Fingerprint: plan.Models[arch]}
	trained, err := loadRequired[model.Artifact](s, stage.Training, ref)
	if err != nil {
		return nil, err
	}
	if err := trained.Contract.Check(plan.Contract()); err != nil {
		return nil, err
	}
	est, err := s.estimator(arch)
	if err != nil {
		return nil, err
	}
	return &Predictor{arch: arch, estimator: est, artifact: &trained, labels: s.labels}, nil
}

// Architecture reports the model behind the predictor.
func (p *Predictor) Architecture() model.Architecture { return p.arch }

// Authors lists the classes the model can attribute.
func (p *Predictor) Authors() []string { return p.labels.Names() }

// Predict attributes each text. Texts that normalise to nothing are rejected.
func (p *Predictor) Predict(texts []string) ([]Prediction, error) {
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		clean := textutil.Normalize(text)
		id := "input-" + strconv.Itoa(i)
		if strings.TrimSpace(clean) == "" {
			return nil, &failure.UnknownDocumentError{DocumentID: id}
		}
		docs[i] = corpus.Document{ID: id, Raw: text, Clean: clean}
	}
	probs, err := p.estimator.Predict(p.artifact, docs)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(probs))
	for i, row := range probs {
		scores := make([]AuthorScore, len(row))
		for c, prob := range row {
			name, _ := p.labels.Name(c)
			scores[c] = AuthorScore{Author: name, Probability: prob}
		}
		best := scores[model.Argmax(row)]
		slices.SortStableFunc(scores, func(a, b AuthorScore) int {
			switch {
			case a.Probability > b.Probability:
				return -1
			case a.Probability < b.Probability:
				return 1
			default:
				return strings.Compare(a.Author, b.Author)
			}
		})
		out[i] = Prediction{Author: best.Author, Confidence: best.Probability, Scores: scores}
	}
	return out, nil
}
