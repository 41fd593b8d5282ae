package model_test

import (
	"errors"
	"math"
	"testing"

	"authorship/internal/failure"
	"authorship/internal/model"
)

func TestScorePerfectAndConfused(t *testing.T) {
	classes := []string{"Austen", "Melville"}
	probs := [][]float64{
		{0.9, 0.1},
		{0.2, 0.8},
		{0.6, 0.4},
		{0.3, 0.7},
	}
	y := []int{0, 1, 1, 1}

	m, err := model.Score(probs, y, classes)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if m.Samples != 4 {
		t.Fatalf("samples = %d, want 4", m.Samples)
	}
	if m.Accuracy != 0.75 {
		t.Fatalf("accuracy = %v, want 0.75", m.Accuracy)
	}
	if m.Confusion[1][0] != 1 || m.Confusion[1][1] != 2 || m.Confusion[0][0] != 1 {
		t.Fatalf("unexpected confusion %v", m.Confusion)
	}
	austen := m.PerClass[0]
	if austen.Precision != 0.5 || austen.Recall != 1 || austen.Support != 1 {
		t.Fatalf("unexpected Austen report %+v", austen)
	}
	melville := m.PerClass[1]
	if melville.Precision != 1 || math.Abs(melville.Recall-2.0/3.0) > 1e-12 {
		t.Fatalf("unexpected Melville report %+v", melville)
	}
	if m.LogLoss <= 0 {
		t.Fatalf("log loss = %v, want positive", m.LogLoss)
	}
}

func TestScoreRejectsShapeMismatch(t *testing.T) {
	if _, err := model.Score([][]float64{{1}}, []int{0, 1}, []string{"a"}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := model.Score([][]float64{{1}}, []int{0}, []string{"a", "b"}); err == nil {
		t.Fatal("expected class count mismatch error")
	}
}

func TestScoreEmptyPartition(t *testing.T) {
	m, err := model.Score(nil, nil, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if m.Samples != 0 || len(m.PerClass) != 2 || m.PerClass[1].Author != "b" {
		t.Fatalf("unexpected empty metrics %+v", m)
	}
}

func TestSoftmaxStable(t *testing.T) {
	out := make([]float64, 3)
	model.Softmax([]float64{1000, 1000, 1000}, out)
	for _, v := range out {
		if math.Abs(v-1.0/3.0) > 1e-12 {
			t.Fatalf("softmax = %v", out)
		}
	}
	if got := model.Argmax([]float64{0.2, 0.5, 0.5}); got != 1 {
		t.Fatalf("Argmax tie = %d, want first maximum", got)
	}
}

func TestEarlyStopping(t *testing.T) {
	es := model.EarlyStopping{Patience: 2}
	steps := []struct {
		score    float64
		improved bool
		stop     bool
	}{
		{0.5, true, false},
		{0.7, true, false},
		{0.7, false, false},
		{0.6, false, true},
	}
	for i, step := range steps {
		improved, stop := es.Observe(i+1, step.score)
		if improved != step.improved || stop != step.stop {
			t.Fatalf("epoch %d: improved=%v stop=%v, want %v %v", i+1, improved, stop, step.improved, step.stop)
		}
	}
	if es.BestEpoch() != 2 {
		t.Fatalf("best epoch = %d, want 2", es.BestEpoch())
	}
}

func TestEarlyStoppingDisabled(t *testing.T) {
	es := model.EarlyStopping{}
	es.Observe(1, 1)
	for epoch := 2; epoch < 20; epoch++ {
		if _, stop := es.Observe(epoch, 0); stop {
			t.Fatalf("zero patience stopped at epoch %d", epoch)
		}
	}
}

func TestMonitorScoreFallsBackToTrainLoss(t *testing.T) {
	rec := model.Epoch{TrainLoss: 0.4, ValidationAccuracy: 0.9}
	if got := model.MonitorScore(rec, 5); got != 0.9 {
		t.Fatalf("with validation = %v", got)
	}
	if got := model.MonitorScore(rec, 0); got != -0.4 {
		t.Fatalf("without validation = %v", got)
	}
}

func TestNewRandDeterministicPerArchitecture(t *testing.T) {
	a := model.NewRand(7, model.CNN).Uint64()
	b := model.NewRand(7, model.CNN).Uint64()
	c := model.NewRand(7, model.RNN).Uint64()
	if a != b {
		t.Fatal("same seed and architecture diverged")
	}
	if a == c {
		t.Fatal("architectures share a stream")
	}
}

func TestContractCheck(t *testing.T) {
	base := model.Contract{Vocabulary: "v1", Labels: "l1", Ranking: "r1"}
	if err := base.Check(base); err != nil {
		t.Fatalf("identical contract: %v", err)
	}
	other := base
	other.Vocabulary = "v2"
	err := base.Check(other)
	if !errors.Is(err, failure.ErrContractMismatch) {
		t.Fatalf("expected contract mismatch, got %v", err)
	}
}

func TestParseArchitecture(t *testing.T) {
	for _, a := range model.Architectures() {
		got, err := model.ParseArchitecture(string(a))
		if err != nil || got != a {
			t.Fatalf("ParseArchitecture(%q) = %q, %v", a, got, err)
		}
	}
	if _, err := model.ParseArchitecture("transformer"); err == nil {
		t.Fatal("expected unknown architecture error")
	}
	if model.CNN.ArtifactName() != "model/cnn" || model.CNN.MetricsName() != "metrics/cnn" {
		t.Fatal("unexpected artifact names")
	}
}

func TestRegistryOrdersCanonically(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.Spec{Architecture: model.RNN})
	reg.Register(model.Spec{Architecture: model.Baseline})
	got := reg.Architectures()
	if len(got) != 2 || got[0] != model.Baseline || got[1] != model.RNN {
		t.Fatalf("architectures = %v", got)
	}
	if _, err := reg.Lookup(model.CNN); err == nil {
		t.Fatal("expected lookup failure for unregistered architecture")
	}
}
