package workflow_test

import (
	"context"
	"errors"
	"testing"

	"authorship/internal/failure"
	"authorship/internal/model"
	"authorship/internal/testsupport"
)

func TestPredictorAttributesSignatureText(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)
	if _, err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p, err := mgr.Predictor(model.Baseline)
	if err != nil {
		t.Fatalf("Predictor: %v", err)
	}
	if got := len(p.Authors()); got != 3 {
		t.Fatalf("predictor knows %d authors, want 3", got)
	}
	preds, err := p.Predict([]string{
		"Whale0 the whale1 and whale2 of whale3 a whale0 to whale1",
		"moor0 her moor1 his moor2 that moor3 was moor0 in moor1",
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if preds[0].Author != "Author A" || preds[1].Author != "Author C" {
		t.Fatalf("predicted %q and %q", preds[0].Author, preds[1].Author)
	}
	for _, pred := range preds {
		if len(pred.Scores) != 3 || pred.Scores[0].Author != pred.Author {
			t.Fatalf("scores not sorted by probability: %+v", pred.Scores)
		}
		if pred.Confidence != pred.Scores[0].Probability {
			t.Fatalf("confidence %v does not match top score %v", pred.Confidence, pred.Scores[0].Probability)
		}
	}
}

func TestPredictorRejectsEmptyText(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)
	if _, err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	p, err := mgr.Predictor(model.Baseline)
	if err != nil {
		t.Fatalf("Predictor: %v", err)
	}
	_, err = p.Predict([]string{"whale0 the whale1", "   "})
	var unknown *failure.UnknownDocumentError
	if !errors.As(err, &unknown) || unknown.DocumentID != "input-1" {
		t.Fatalf("expected UnknownDocumentError for input-1, got %v", err)
	}
	if !errors.Is(err, failure.ErrUnknownDocument) {
		t.Fatalf("expected ErrUnknownDocument, got %v", err)
	}
}

func TestPredictorRequiresCachedModel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)

	if _, err := mgr.Predictor(model.Baseline); !errors.Is(err, failure.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
	if _, err := mgr.Predictor(model.RNN); err == nil {
		t.Fatal("expected error for a model that is not enabled")
	}
}
