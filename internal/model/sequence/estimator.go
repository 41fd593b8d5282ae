package sequence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/logging"
	"authorship/internal/model"
)

// Hyper is the union of the sequence families' hyperparameters. Each
// constructor fills only the fields its architecture reads.
type Hyper struct {
	EmbeddingDim int     `json:"embedding_dim"`
	Filters      int     `json:"filters,omitempty"`
	KernelWidth  int     `json:"kernel_width,omitempty"`
	HiddenDim    int     `json:"hidden_dim,omitempty"`
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	L2           float64 `json:"l2"`
	Patience     int     `json:"patience"`
	GradClip     float64 `json:"grad_clip,omitempty"`
}

// Estimator trains one sequence architecture.
type Estimator struct {
	arch   model.Architecture
	hyper  Hyper
	env    model.Env
	logger *slog.Logger
}

// NewBag builds the mean-pooled embedding classifier.
func NewBag(cfg config.BagModel, env model.Env) (*Estimator, error) {
	return newEstimator(model.Bag, Hyper{
		EmbeddingDim: cfg.EmbeddingDim,
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Patience:     cfg.Patience,
	}, env)
}

// NewCNN builds the convolutional classifier.
func NewCNN(cfg config.CNNModel, env model.Env) (*Estimator, error) {
	return newEstimator(model.CNN, Hyper{
		EmbeddingDim: cfg.EmbeddingDim,
		Filters:      cfg.Filters,
		KernelWidth:  cfg.KernelWidth,
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Patience:     cfg.Patience,
	}, env)
}

// NewRNN builds the recurrent classifier.
func NewRNN(cfg config.RNNModel, env model.Env) (*Estimator, error) {
	return newEstimator(model.RNN, Hyper{
		EmbeddingDim: cfg.EmbeddingDim,
		HiddenDim:    cfg.HiddenDim,
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Patience:     cfg.Patience,
		GradClip:     cfg.GradClip,
	}, env)
}

func newEstimator(arch model.Architecture, h Hyper, env model.Env) (*Estimator, error) {
	if env.Vocabulary == nil || env.Labels == nil {
		return nil, fmt.Errorf("%s: vocabulary and label map are required", arch)
	}
	if h.EmbeddingDim <= 0 || h.Epochs <= 0 || h.LearningRate <= 0 {
		return nil, fmt.Errorf("%s: embedding_dim, epochs, and learning_rate must be positive", arch)
	}
	return &Estimator{
		arch:   arch,
		hyper:  h,
		env:    env,
		logger: logging.NewComponentLogger(env.Logger, "model."+string(arch)),
	}, nil
}

// Architecture implements model.Estimator.
func (e *Estimator) Architecture() model.Architecture { return e.arch }

// Train implements model.Estimator.
func (e *Estimator) Train(ctx context.Context, train, validation model.Dataset) (*model.Artifact, error) {
	xTrain, err := e.encode(train.Docs, e.hyper.KernelWidth)
	if err != nil {
		return nil, err
	}
	xVal, err := e.encode(validation.Docs, e.hyper.KernelWidth)
	if err != nil {
		return nil, err
	}
	rng := model.NewRand(e.env.Seed, e.arch)
	net := &network{arch: e.arch, p: newParams(e.arch, e.hyper, e.env.Vocabulary.SequenceSize(), e.env.Labels.Len(), rng)}
	best := net.p.clone()
	g := newGrads(net.p)

	order := make([]int, len(xTrain))
	for i := range order {
		order[i] = i
	}
	stopper := &model.EarlyStopping{Patience: e.hyper.Patience}
	history := model.History{Stopped: "max_epochs"}

	e.logger.InfoContext(ctx, "training sequence model",
		logging.String(logging.FieldArchitecture, string(e.arch)),
		logging.Int(logging.FieldSamples, len(xTrain)),
		logging.Int(logging.FieldFeatures, net.p.Vocab),
		logging.Int(logging.FieldClasses, net.p.Classes),
	)
	for epoch := 1; epoch <= e.hyper.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var trainLoss float64
		for step, i := range order {
			if step%512 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			t := net.forward(xTrain[i])
			trainLoss += model.CrossEntropy(t.probs, train.Labels[i])
			net.backward(t, train.Labels[i], g)
			if e.hyper.GradClip > 0 {
				if norm := g.norm(); norm > e.hyper.GradClip {
					g.scale(e.hyper.GradClip / norm)
				}
			}
			net.apply(g, e.hyper.LearningRate, e.hyper.L2)
			g.reset()
		}

		valProbs := predictAll(net, xVal)
		record := model.Epoch{
			Epoch:              epoch,
			TrainLoss:          trainLoss / float64(max(len(order), 1)),
			ValidationLoss:     model.MeanLoss(valProbs, validation.Labels),
			ValidationAccuracy: model.Accuracy(valProbs, validation.Labels),
		}
		history.Epochs = append(history.Epochs, record)
		improved, stop := stopper.Observe(epoch, model.MonitorScore(record, validation.Len()))
		if improved {
			best = net.p.clone()
		}
		e.logger.InfoContext(ctx, "epoch complete",
			logging.String(logging.FieldArchitecture, string(e.arch)),
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
		return nil, fmt.Errorf("%s: encode params: %w", e.arch, err)
	}
	hyper, err := json.Marshal(e.hyper)
	if err != nil {
		return nil, fmt.Errorf("%s: encode hyperparameters: %w", e.arch, err)
	}
	return &model.Artifact{
		Architecture: e.arch,
		Contract:     e.env.Contract,
		Classes:      e.env.Labels.Names(),
		Hyper:        hyper,
		Params:       params,
		History:      history,
	}, nil
}

// Predict implements model.Estimator.
func (e *Estimator) Predict(a *model.Artifact, docs []corpus.Document) ([][]float64, error) {
	net, err := e.restore(a)
	if err != nil {
		return nil, err
	}
	x, err := e.encode(docs, net.p.Width)
	if err != nil {
		return nil, err
	}
	return predictAll(net, x), nil
}

// Evaluate implements model.Estimator.
func (e *Estimator) Evaluate(a *model.Artifact, labeled model.Dataset) (model.Metrics, error) {
	probs, err := e.Predict(a, labeled.Docs)
	if err != nil {
		return model.Metrics{}, err
	}
	return model.Score(probs, labeled.Labels, a.Classes)
}

func (e *Estimator) restore(a *model.Artifact) (*network, error) {
	if a == nil || a.Architecture != e.arch {
		return nil, fmt.Errorf("%s: artifact is not a %s model", e.arch, e.arch)
	}
	if err := a.Contract.Check(e.env.Contract); err != nil {
		return nil, err
	}
	var p Params
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return nil, fmt.Errorf("%s: decode params: %w", e.arch, err)
	}
	if p.Vocab != e.env.Vocabulary.SequenceSize() {
		return nil, failure.Wrap(failure.ErrContractMismatch, string(e.arch), "restore",
			fmt.Sprintf("embedding covers %d ids, vocabulary encodes %d", p.Vocab, e.env.Vocabulary.SequenceSize()), nil)
	}
	if len(p.Embedding) != p.Vocab*p.Dim || len(p.OutW) != p.Classes*p.Hidden || p.Classes != len(a.Classes) {
		return nil, fmt.Errorf("%s: params have inconsistent shapes", e.arch)
	}
	return &network{arch: e.arch, p: &p}, nil
}

// encode maps documents to id sequences, padding short inputs to width.
func (e *Estimator) encode(docs []corpus.Document, width int) ([][]int, error) {
	v := e.env.Vocabulary
	out := make([][]int, len(docs))
	for i, doc := range docs {
		if doc.Clean == "" {
			return nil, &failure.UnknownDocumentError{DocumentID: doc.ID}
		}
		seq := v.Encode(doc.Clean, e.env.MaxSequenceLength)
		for len(seq) < width {
			seq = append(seq, v.Pad())
		}
		out[i] = seq
	}
	return out, nil
}

func predictAll(net *network, x [][]int) [][]float64 {
	out := make([][]float64, len(x))
	for i, seq := range x {
		out[i] = net.forward(seq).probs
	}
	return out
}
