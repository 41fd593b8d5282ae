package sequence_test

import (
	"context"
	"errors"
	"testing"

	"authorship/internal/failure"
	"authorship/internal/model"
	"authorship/internal/model/catalog"
	"authorship/internal/testsupport"
)

func TestSequenceArchitecturesTrainAndEvaluate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.NewFixture(t, cfg, testsupport.StyleDocuments(2, 12))
	reg := catalog.Registry(cfg.Models)

	for _, arch := range []model.Architecture{model.Bag, model.CNN, model.RNN} {
		t.Run(string(arch), func(t *testing.T) {
			spec, err := reg.Lookup(arch)
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			est, err := spec.New(fx.Env)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			art, err := est.Train(context.Background(), fx.Train, fx.Validation)
			if err != nil {
				t.Fatalf("Train: %v", err)
			}
			if art.Architecture != arch || len(art.Classes) != 2 {
				t.Fatalf("unexpected artifact header %q %v", art.Architecture, art.Classes)
			}
			if n := len(art.History.Epochs); n == 0 || n > cfg.Models.Bag.Epochs {
				t.Fatalf("epochs recorded = %d", n)
			}

			probs, err := est.Predict(art, fx.Test.Docs)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			for i, p := range probs {
				var sum float64
				for _, v := range p {
					sum += v
				}
				if sum < 0.999 || sum > 1.001 {
					t.Fatalf("row %d probabilities sum to %v", i, sum)
				}
			}

			metrics, err := est.Evaluate(art, fx.Test)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if metrics.Samples != fx.Test.Len() || len(metrics.Confusion) != 2 {
				t.Fatalf("unexpected metrics %+v", metrics)
			}
		})
	}
}

func TestSequenceTrainingIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.NewFixture(t, cfg, testsupport.StyleDocuments(2, 8))
	spec, err := catalog.Registry(cfg.Models).Lookup(model.RNN)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	train := func() string {
		est, err := spec.New(fx.Env)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		art, err := est.Train(context.Background(), fx.Train, fx.Validation)
		if err != nil {
			t.Fatalf("Train: %v", err)
		}
		return string(art.Params)
	}
	if train() != train() {
		t.Fatal("same seed produced different parameters")
	}
}

func TestSequenceRejectsForeignContract(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.NewFixture(t, cfg, testsupport.StyleDocuments(2, 8))
	spec, err := catalog.Registry(cfg.Models).Lookup(model.Bag)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	est, err := spec.New(fx.Env)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	art, err := est.Train(context.Background(), fx.Train, fx.Validation)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	env := fx.Env
	env.Contract.Labels = "other-labels"
	other, err := spec.New(env)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := other.Predict(art, fx.Test.Docs); !errors.Is(err, failure.ErrContractMismatch) {
		t.Fatalf("expected contract mismatch, got %v", err)
	}
}

func TestSequenceRejectsWrongArchitecture(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fx := testsupport.NewFixture(t, cfg, testsupport.StyleDocuments(2, 8))
	reg := catalog.Registry(cfg.Models)
	bagSpec, _ := reg.Lookup(model.Bag)
	cnnSpec, _ := reg.Lookup(model.CNN)
	bag, err := bagSpec.New(fx.Env)
	if err != nil {
		t.Fatalf("New bag: %v", err)
	}
	cnn, err := cnnSpec.New(fx.Env)
	if err != nil {
		t.Fatalf("New cnn: %v", err)
	}
	art, err := bag.Train(context.Background(), fx.Train, fx.Validation)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if _, err := cnn.Predict(art, fx.Test.Docs); err == nil {
		t.Fatal("cnn accepted a bag artifact")
	}
}
