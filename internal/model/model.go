package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/features"
	"authorship/internal/labels"
)

// Architecture names a classifier family.
type Architecture string

const (
	Baseline Architecture = "baseline"
	Bag      Architecture = "bag"
	CNN      Architecture = "cnn"
	RNN      Architecture = "rnn"
)

// Architectures lists every known architecture in canonical order.
func Architectures() []Architecture { return []Architecture{Baseline, Bag, CNN, RNN} }

// ParseArchitecture validates an architecture name.
func ParseArchitecture(name string) (Architecture, error) {
	for _, a := range Architectures() {
		if string(a) == name {
			return a, nil
		}
	}
	return "", failure.Configf("models", "unknown architecture %q (expected baseline, bag, cnn, or rnn)", name)
}

// ArtifactName is the store name of a trained model.
func (a Architecture) ArtifactName() string { return "model/" + string(a) }

// MetricsName is the store name of a model's evaluation record.
func (a Architecture) MetricsName() string { return "metrics/" + string(a) }

// Contract pins the feature and label fingerprints a model was trained on.
type Contract struct {
	Vocabulary string `json:"vocabulary"`
	Labels     string `json:"labels"`
	Ranking    string `json:"ranking"`
}

// Check fails when other differs from c.
func (c Contract) Check(other Contract) error {
	if c == other {
		return nil
	}
	return failure.Wrap(failure.ErrContractMismatch, "model", "contract",
		fmt.Sprintf("model trained on vocabulary %s labels %s ranking %s, current vocabulary %s labels %s ranking %s",
			short(c.Vocabulary), short(c.Labels), short(c.Ranking),
			short(other.Vocabulary), short(other.Labels), short(other.Ranking)), nil)
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// Epoch records one pass over the training data.
type Epoch struct {
	Epoch              int     `json:"epoch"`
	TrainLoss          float64 `json:"train_loss"`
	ValidationLoss     float64 `json:"validation_loss"`
	ValidationAccuracy float64 `json:"validation_accuracy"`
}

// History is the training trace of a model.
type History struct {
	Epochs    []Epoch `json:"epochs"`
	BestEpoch int     `json:"best_epoch"`
	Stopped   string  `json:"stopped"`
}

// Artifact is a trained classifier bundled with its contract and history.
type Artifact struct {
	Architecture Architecture    `json:"architecture"`
	Contract     Contract        `json:"contract"`
	Classes      []string        `json:"classes"`
	Hyper        json.RawMessage `json:"hyperparameters"`
	Params       json.RawMessage `json:"params"`
	History      History         `json:"history"`
}

// Dataset pairs documents with their class ids.
type Dataset struct {
	Docs   []corpus.Document
	Labels []int
}

// Len returns the number of examples.
func (d Dataset) Len() int { return len(d.Docs) }

// NewDataset encodes document authors through lm.
func NewDataset(docs []corpus.Document, lm *labels.Map) (Dataset, error) {
	authors := make([]string, len(docs))
	for i, doc := range docs {
		authors[i] = doc.Author
	}
	y, err := lm.Encode(authors)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Docs: docs, Labels: y}, nil
}

// Estimator is the uniform training contract.
type Estimator interface {
	Architecture() Architecture
	Train(ctx context.Context, train, validation Dataset) (*Artifact, error)
	Predict(a *Artifact, docs []corpus.Document) ([][]float64, error)
	Evaluate(a *Artifact, labeled Dataset) (Metrics, error)
}

// Env is the fitted feature state an estimator is built against.
type Env struct {
	Vocabulary        *features.Vocabulary
	Ranking           features.Ranking
	Labels            *labels.Map
	Contract          Contract
	Seed              int64
	TopK              int
	MaxSequenceLength int
	Logger            *slog.Logger
}
