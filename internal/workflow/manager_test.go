package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"authorship/internal/artifact"
	"authorship/internal/config"
	"authorship/internal/failure"
	"authorship/internal/ledger"
	"authorship/internal/logging"
	"authorship/internal/model"
	"authorship/internal/stage"
	"authorship/internal/testsupport"
	"authorship/internal/workflow"
)

func newManager(t *testing.T, cfg *config.Config, opts ...workflow.Option) (*workflow.Manager, *artifact.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	return workflow.NewManager(cfg, store, logging.NewNop(), opts...), store
}

func writeCorpus(t *testing.T, cfg *config.Config) {
	t.Helper()
	testsupport.WriteCorpusCSV(t, testsupport.CorpusPath(cfg), testsupport.StyleDocuments(3, 10))
}

func setAllStages(cfg *config.Config, enabled bool) {
	cfg.Stages = config.Stages{
		EnableEDA:                enabled,
		EnablePreprocessing:      enabled,
		EnableFeatureEngineering: enabled,
		EnableTraining:           enabled,
		EnableEvaluation:         enabled,
	}
}

func TestRunComputesEveryStageAndCachesOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, store := newManager(t, cfg)

	outcome, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range stage.Order() {
		if got := outcome.Report.Status(name); got != stage.StatusRecomputed {
			t.Fatalf("stage %s status = %s, want recomputed", name, got)
		}
	}
	for name, fp := range outcome.Plan.All() {
		if !store.Has(name, fp) {
			t.Fatalf("artifact %s@%s not cached", name, artifact.Short(fp))
		}
	}
	if len(outcome.Evaluations) != 1 || outcome.Evaluations[0].Architecture != model.Baseline {
		t.Fatalf("unexpected evaluations %+v", outcome.Evaluations)
	}
	if outcome.Evaluations[0].Test.Samples == 0 {
		t.Fatal("expected test metrics over a non-empty partition")
	}
}

func TestRunWithAllStagesDisabledReproducesMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)

	first, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	setAllStages(cfg, false)
	mgr, _ = newManager(t, cfg)
	second, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("cached run: %v", err)
	}
	for _, name := range stage.Order() {
		if got := second.Report.Status(name); got != stage.StatusSkipped {
			t.Fatalf("stage %s status = %s, want skipped", name, got)
		}
	}
	if !reflect.DeepEqual(first.Evaluations, second.Evaluations) {
		t.Fatalf("cached evaluations differ:\nfirst  %+v\nsecond %+v", first.Evaluations, second.Evaluations)
	}
}

func TestRetrainingReproducesParameters(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, store := newManager(t, cfg)

	outcome, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	name, fp := model.Baseline.ArtifactName(), outcome.Plan.Models[model.Baseline]
	before, ok, err := artifact.LoadJSON[model.Artifact](store, name, fp, artifact.KindModel)
	if err != nil || !ok {
		t.Fatalf("load trained model: ok=%v err=%v", ok, err)
	}

	setAllStages(cfg, false)
	cfg.Stages.EnableTraining = true
	mgr, store = newManager(t, cfg)
	retrained, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("retrain run: %v", err)
	}
	if got := retrained.Report.Status(stage.Training); got != stage.StatusRecomputed {
		t.Fatalf("training status = %s, want recomputed", got)
	}
	if got := retrained.Report.Status(stage.FeatureEngineering); got != stage.StatusSkipped {
		t.Fatalf("feature engineering status = %s, want skipped", got)
	}
	after, _, err := artifact.LoadJSON[model.Artifact](store, name, fp, artifact.KindModel)
	if err != nil {
		t.Fatalf("reload model: %v", err)
	}
	if !bytes.Equal(before.Params, after.Params) {
		t.Fatal("retraining with the same seed produced different parameters")
	}
}

func TestRunFailsFastWhenDisabledStageIsUncached(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	cfg.Stages.EnablePreprocessing = false
	mgr, store := newManager(t, cfg)

	outcome, err := mgr.Run(context.Background())
	if err == nil {
		t.Fatal("expected missing artifact failure")
	}
	var stageErr *failure.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T: %v", err, err)
	}
	if stageErr.Stage != string(stage.Preprocessing) {
		t.Fatalf("failure names stage %q, want preprocessing", stageErr.Stage)
	}
	if !errors.Is(err, failure.ErrMissingArtifact) {
		t.Fatalf("expected ErrMissingArtifact, got %v", err)
	}
	if !strings.Contains(err.Error(), workflow.PreparedArtifact) {
		t.Fatalf("error %q does not name the missing artifact", err)
	}
	if got := outcome.Report.Status(stage.EDA); got != stage.StatusNotRun {
		t.Fatalf("eda status = %s, want not_run", got)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts written, found %d", len(entries))
	}
}

func TestRunFailsFastWhenDisabledStageHoldsUnusableArtifact(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "foreign key", content: `{"name":"metrics/other","fingerprint":"other","kind":"metrics-record","payload":{}}`, missing: true},
		{name: "wrong kind", content: "", missing: true},
		{name: "truncated", content: `{"name":"metrics/base`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
			writeCorpus(t, cfg)
			cfg.Stages.EnableEvaluation = false
			mgr, store := newManager(t, cfg)

			plan, err := mgr.Plan()
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			name, fp := model.Baseline.MetricsName(), plan.Metrics[model.Baseline]
			content := tt.content
			if content == "" {
				content = fmt.Sprintf(`{"name":%q,"fingerprint":%q,"kind":"vocabulary-mapping","payload":{}}`, name, fp)
			}
			path := store.Path(name, fp)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("plant artifact: %v", err)
			}

			outcome, err := mgr.Run(context.Background())
			if err == nil {
				t.Fatal("expected run to fail on the unusable artifact")
			}
			var stageErr *failure.StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != string(stage.Evaluation) {
				t.Fatalf("expected evaluation StageError, got %T: %v", err, err)
			}
			if got := errors.Is(err, failure.ErrMissingArtifact); got != tt.missing {
				t.Fatalf("errors.Is(ErrMissingArtifact) = %v, want %v (%v)", got, tt.missing, err)
			}
			if got := outcome.Report.Status(stage.EDA); got != stage.StatusNotRun {
				t.Fatalf("eda status = %s, want not_run", got)
			}
			for artifactName, artifactFP := range outcome.Plan.All() {
				if artifactName == name {
					continue
				}
				if store.Has(artifactName, artifactFP) {
					t.Fatalf("artifact %s written before the failure was detected", artifactName)
				}
			}
		})
	}
}

func TestRunRecordsLedgerHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	db, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mgr, _ := newManager(t, cfg, workflow.WithLedger(db))

	outcome, err := mgr.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ctx := context.Background()
	run, err := db.GetRun(ctx, outcome.Report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: run=%v err=%v", run, err)
	}
	if run.Status != ledger.RunSucceeded {
		t.Fatalf("run status = %s, want succeeded", run.Status)
	}
	if len(run.Stages) != len(stage.Order()) {
		t.Fatalf("recorded %d stages, want %d", len(run.Stages), len(stage.Order()))
	}
	evals, err := db.Evaluations(ctx, outcome.Report.RunID)
	if err != nil {
		t.Fatalf("Evaluations: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("expected validation and test rows, got %d", len(evals))
	}
	latest, err := db.LatestArtifacts(ctx)
	if err != nil {
		t.Fatalf("LatestArtifacts: %v", err)
	}
	if latest[workflow.VocabularyArtifact] != outcome.Plan.Vocabulary {
		t.Fatalf("latest vocabulary %q, want %q", latest[workflow.VocabularyArtifact], outcome.Plan.Vocabulary)
	}
}

func TestRunRecordsFailedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	cfg.Stages.EnableFeatureEngineering = false
	db, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mgr, _ := newManager(t, cfg, workflow.WithLedger(db))

	outcome, err := mgr.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	run, err := db.GetRun(context.Background(), outcome.Report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: run=%v err=%v", run, err)
	}
	if run.Status != ledger.RunFailed || run.ErrorMessage == "" {
		t.Fatalf("run = %+v, want failed with message", run)
	}
}

func TestRunRejectsMissingCorpusFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, _ := newManager(t, cfg)

	if _, err := mgr.Run(context.Background()); err == nil {
		t.Fatal("expected preflight failure for missing corpus")
	}
}

func TestRunLogsStageEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, "json", "info")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := workflow.NewManager(cfg, store, logger).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"event_type":"run_start"`, `"event_type":"stage_complete"`, `"event_type":"run_complete"`, `"stage":"training"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s", want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	writeCorpus(t, cfg)
	mgr, _ := newManager(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
