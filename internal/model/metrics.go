package model

import (
	"fmt"
	"math"
)

// logLossEpsilon clips probabilities away from 0 and 1.
const logLossEpsilon = 1e-15

// ClassReport holds per-author scores.
type ClassReport struct {
	Author    string  `json:"author"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Metrics is the metrics-record for one model on one partition.
type Metrics struct {
	Samples        int           `json:"samples"`
	Accuracy       float64       `json:"accuracy"`
	MacroPrecision float64       `json:"macro_precision"`
	MacroRecall    float64       `json:"macro_recall"`
	MacroF1        float64       `json:"macro_f1"`
	LogLoss        float64       `json:"log_loss"`
	PerClass       []ClassReport `json:"per_class"`
	Confusion      [][]int       `json:"confusion"`
}

// Score computes metrics from predicted distributions. Rows of the confusion
// matrix are true classes, columns predictions.
func Score(probs [][]float64, y []int, classes []string) (Metrics, error) {
	if len(probs) != len(y) {
		return Metrics{}, fmt.Errorf("score: %d predictions for %d labels", len(probs), len(y))
	}
	k := len(classes)
	m := Metrics{Samples: len(y), Confusion: make([][]int, k), PerClass: make([]ClassReport, k)}
	for i := range m.Confusion {
		m.Confusion[i] = make([]int, k)
	}
	if len(y) == 0 {
		for c := range classes {
			m.PerClass[c] = ClassReport{Author: classes[c]}
		}
		return m, nil
	}

	correct := 0
	var loss float64
	for i, p := range probs {
		if len(p) != k {
			return Metrics{}, fmt.Errorf("score: prediction %d has %d classes, want %d", i, len(p), k)
		}
		pred := Argmax(p)
		m.Confusion[y[i]][pred]++
		if pred == y[i] {
			correct++
		}
		loss -= math.Log(min(max(p[y[i]], logLossEpsilon), 1-logLossEpsilon))
	}
	m.Accuracy = float64(correct) / float64(len(y))
	m.LogLoss = loss / float64(len(y))

	for c := range k {
		tp := m.Confusion[c][c]
		support, predicted := 0, 0
		for j := range k {
			support += m.Confusion[c][j]
			predicted += m.Confusion[j][c]
		}
		r := ClassReport{Author: classes[c], Support: support}
		if predicted > 0 {
			r.Precision = float64(tp) / float64(predicted)
		}
		if support > 0 {
			r.Recall = float64(tp) / float64(support)
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		m.PerClass[c] = r
		m.MacroPrecision += r.Precision
		m.MacroRecall += r.Recall
		m.MacroF1 += r.F1
	}
	m.MacroPrecision /= float64(k)
	m.MacroRecall /= float64(k)
	m.MacroF1 /= float64(k)
	return m, nil
}

// Argmax returns the index of the largest value, the lowest on ties.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Softmax writes the normalized exponentials of logits into out.
func Softmax(logits, out []float64) {
	peak := math.Inf(-1)
	for _, v := range logits {
		peak = max(peak, v)
	}
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}

// CrossEntropy returns -log p[y], clipped.
func CrossEntropy(p []float64, y int) float64 {
	return -math.Log(max(p[y], logLossEpsilon))
}

// Evaluation is the persisted metrics record for one trained model.
type Evaluation struct {
	Architecture Architecture `json:"architecture"`
	Model        string       `json:"model_fingerprint"`
	Validation   Metrics      `json:"validation"`
	Test         Metrics      `json:"test"`
}
