// Package linear implements the baseline classifier: multinomial logistic
// regression over the top-ranked TF-IDF features, trained with minibatch SGD,
// L2 weight decay, and early stopping on validation accuracy.
package linear

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/features"
	"authorship/internal/logging"
	"authorship/internal/model"
)

// Params are the learned weights. Selected lists the vocabulary columns the
// model reads, in weight column order.
type Params struct {
	Selected []int       `json:"selected"`
	Weights  [][]float64 `json:"weights"`
	Bias     []float64   `json:"bias"`
}

// Estimator trains and applies the baseline model.
type Estimator struct {
	cfg    config.LinearModel
	env    model.Env
	logger *slog.Logger
}

// New builds a baseline estimator for env.
func New(cfg config.LinearModel, env model.Env) (*Estimator, error) {
	if env.Vocabulary == nil || env.Labels == nil {
		return nil, fmt.Errorf("linear: vocabulary and label map are required")
	}
	if env.TopK <= 0 {
		return nil, fmt.Errorf("linear: top-k must be positive")
	}
	return &Estimator{
		cfg:    cfg,
		env:    env,
		logger: logging.NewComponentLogger(env.Logger, "model.baseline"),
	}, nil
}

// Architecture implements model.Estimator.
func (e *Estimator) Architecture() model.Architecture { return model.Baseline }

// Train implements model.Estimator.
func (e *Estimator) Train(ctx context.Context, train, validation model.Dataset) (*model.Artifact, error) {
	sel := e.env.Ranking.Select(e.env.TopK)
	if sel.Len() == 0 {
		return nil, fmt.Errorf("linear: feature ranking is empty")
	}
	xTrain, err := e.project(train.Docs, sel)
	if err != nil {
		return nil, err
	}
	xVal, err := e.project(validation.Docs, sel)
	if err != nil {
		return nil, err
	}

	classes := e.env.Labels.Len()
	p := Params{
		Selected: sel.Features(),
		Weights:  make([][]float64, classes),
		Bias:     make([]float64, classes),
	}
	for c := range p.Weights {
		p.Weights[c] = make([]float64, sel.Len())
	}
	best := clone(p)

	rng := model.NewRand(e.env.Seed, model.Baseline)
	order := make([]int, len(xTrain.Rows))
	for i := range order {
		order[i] = i
	}
	stopper := &model.EarlyStopping{Patience: e.cfg.Patience}
	history := model.History{Stopped: "max_epochs"}
	gradW := make([][]float64, classes)
	for c := range gradW {
		gradW[c] = make([]float64, sel.Len())
	}
	gradB := make([]float64, classes)
	probs := make([]float64, classes)
	logits := make([]float64, classes)

	e.logger.InfoContext(ctx, "training baseline",
		logging.Int(logging.FieldSamples, len(xTrain.Rows)),
		logging.Int(logging.FieldFeatures, sel.Len()),
		logging.Int(logging.FieldClasses, classes),
	)
	for epoch := 1; epoch <= e.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var trainLoss float64
		for start := 0; start < len(order); start += e.cfg.BatchSize {
			batch := order[start:min(start+e.cfg.BatchSize, len(order))]
			touched := make(map[int]struct{})
			for _, i := range batch {
				row := xTrain.Rows[i]
				forward(&p, row, logits, probs)
				trainLoss += model.CrossEntropy(probs, train.Labels[i])
				for c := range classes {
					g := probs[c]
					if c == train.Labels[i] {
						g--
					}
					gradB[c] += g
					for k, col := range row.Indices {
						gradW[c][col] += g * row.Values[k]
					}
				}
				for _, col := range row.Indices {
					touched[col] = struct{}{}
				}
			}
			scale := e.cfg.LearningRate / float64(len(batch))
			decay := 1 - e.cfg.LearningRate*e.cfg.L2
			for c := range classes {
				w := p.Weights[c]
				if e.cfg.L2 > 0 {
					for k := range w {
						w[k] *= decay
					}
				}
				for col := range touched {
					w[col] -= scale * gradW[c][col]
					gradW[c][col] = 0
				}
				p.Bias[c] -= scale * gradB[c]
				gradB[c] = 0
			}
		}

		valProbs := predictAll(&p, xVal)
		record := model.Epoch{
			Epoch:              epoch,
			TrainLoss:          trainLoss / float64(max(len(order), 1)),
			ValidationLoss:     model.MeanLoss(valProbs, validation.Labels),
			ValidationAccuracy: model.Accuracy(valProbs, validation.Labels),
		}
		history.Epochs = append(history.Epochs, record)
		improved, stop := stopper.Observe(epoch, model.MonitorScore(record, validation.Len()))
		if improved {
			best = clone(p)
		}
		e.logger.DebugContext(ctx, "baseline epoch",
			logging.Int(logging.FieldEpoch, epoch),
			logging.Float64("train_loss", record.TrainLoss),
			logging.Float64("validation_accuracy", record.ValidationAccuracy),
		)
		if stop {
			history.Stopped = "early_stopping"
			break
		}
	}
	history.BestEpoch = stopper.BestEpoch()

	params, err := json.Marshal(best)
	if err != nil {
		return nil, fmt.Errorf("linear: encode params: %w", err)
	}
	hyper, err := json.Marshal(e.cfg)
	if err != nil {
		return nil, fmt.Errorf("linear: encode hyperparameters: %w", err)
	}
	return &model.Artifact{
		Architecture: model.Baseline,
		Contract:     e.env.Contract,
		Classes:      e.env.Labels.Names(),
		Hyper:        hyper,
		Params:       params,
		History:      history,
	}, nil
}

// Predict implements model.Estimator.
func (e *Estimator) Predict(a *model.Artifact, docs []corpus.Document) ([][]float64, error) {
	p, err := e.restore(a)
	if err != nil {
		return nil, err
	}
	sel := selectionFor(p.Selected)
	x, err := e.project(docs, sel)
	if err != nil {
		return nil, err
	}
	return predictAll(p, x), nil
}

// Evaluate implements model.Estimator.
func (e *Estimator) Evaluate(a *model.Artifact, labeled model.Dataset) (model.Metrics, error) {
	probs, err := e.Predict(a, labeled.Docs)
	if err != nil {
		return model.Metrics{}, err
	}
	return model.Score(probs, labeled.Labels, a.Classes)
}

func (e *Estimator) restore(a *model.Artifact) (*Params, error) {
	if a == nil || a.Architecture != model.Baseline {
		return nil, fmt.Errorf("linear: artifact is not a baseline model")
	}
	if err := a.Contract.Check(e.env.Contract); err != nil {
		return nil, err
	}
	var p Params
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return nil, fmt.Errorf("linear: decode params: %w", err)
	}
	if len(p.Weights) != len(a.Classes) || len(p.Bias) != len(a.Classes) {
		return nil, fmt.Errorf("linear: params cover %d classes, artifact lists %d", len(p.Weights), len(a.Classes))
	}
	return &p, nil
}

func (e *Estimator) project(docs []corpus.Document, sel *features.Selection) (features.Matrix, error) {
	m, err := features.Transform(docs, e.env.Vocabulary)
	if err != nil {
		return features.Matrix{}, err
	}
	return sel.ProjectMatrix(m), nil
}

// selectionFor rebuilds a projection from stored feature indices.
func selectionFor(selected []int) *features.Selection {
	entries := make([]features.Scored, len(selected))
	for i, f := range selected {
		entries[i] = features.Scored{Feature: f, Score: float64(len(selected) - i)}
	}
	return features.Ranking{Entries: entries}.Select(len(selected))
}

func forward(p *Params, row features.SparseVector, logits, probs []float64) {
	for c := range p.Weights {
		logits[c] = p.Bias[c] + row.Dot(p.Weights[c])
	}
	model.Softmax(logits, probs)
}

func predictAll(p *Params, x features.Matrix) [][]float64 {
	out := make([][]float64, len(x.Rows))
	logits := make([]float64, len(p.Bias))
	for i, row := range x.Rows {
		out[i] = make([]float64, len(p.Bias))
		forward(p, row, logits, out[i])
	}
	return out
}

func clone(p Params) Params {
	out := Params{Selected: slices.Clone(p.Selected), Bias: slices.Clone(p.Bias), Weights: make([][]float64, len(p.Weights))}
	for c, w := range p.Weights {
		out.Weights[c] = slices.Clone(w)
	}
	return out
}
