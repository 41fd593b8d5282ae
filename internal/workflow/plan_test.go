package workflow_test

import (
	"testing"

	"authorship/internal/model"
	"authorship/internal/testsupport"
	"authorship/internal/workflow"
)

func TestPlanFingerprintsFollowUpstreamChanges(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline", "bag"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)
	base, err := mgr.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	again, err := mgr.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if base.Split != again.Split || base.Models[model.Bag] != again.Models[model.Bag] {
		t.Fatal("plan is not deterministic")
	}

	tests := []struct {
		name        string
		mutate      func()
		sameProfile bool
		sameSplit   bool
		sameVocab   bool
		sameBag     bool
	}{
		{
			name:        "seed",
			mutate:      func() { cfg.Split.Seed = 99 },
			sameProfile: true,
		},
		{
			name:        "top k only affects baseline",
			mutate:      func() { cfg.Features.TopKFeatures = 50 },
			sameProfile: true, sameSplit: true, sameVocab: true, sameBag: true,
		},
		{
			name:        "vocabulary size",
			mutate:      func() { cfg.Features.VocabMaxSize = 10 },
			sameProfile: true, sameSplit: true,
		},
		{
			name:   "corpus contents",
			mutate: func() { testsupport.WriteCorpusCSV(t, testsupport.CorpusPath(cfg), testsupport.StyleDocuments(3, 11)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := *cfg
			t.Cleanup(func() {
				*cfg = saved
				writeCorpus(t, cfg)
			})
			tt.mutate()
			got, err := workflow.NewManager(cfg, nil, nil).Plan()
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			check := func(field string, same bool, a, b string) {
				if (a == b) != same {
					t.Fatalf("%s fingerprint unchanged=%v, want %v", field, a == b, same)
				}
			}
			check("profile", tt.sameProfile, base.Profile, got.Profile)
			check("split", tt.sameSplit, base.Split, got.Split)
			check("vocabulary", tt.sameVocab, base.Vocabulary, got.Vocabulary)
			check("bag model", tt.sameBag, base.Models[model.Bag], got.Models[model.Bag])
			if base.Models[model.Baseline] == got.Models[model.Baseline] {
				t.Fatal("baseline model fingerprint should change")
			}
		})
	}
}
