package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"authorship/internal/config"
	"authorship/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithModels("baseline"))
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	t.Setenv("AUTHORSHIP_CORPUS", "")
	t.Setenv("AUTHORSHIP_ARTIFACT_DIR", "")
	t.Setenv("AUTHORSHIP_SEED", "")
	cfg.Logging.Level = "error"
	testsupport.WriteCorpusCSV(t, testsupport.CorpusPath(cfg), testsupport.StyleDocuments(3, 10))

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliEnv{cfg: cfg, configPath: configPath}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestRunThenInspect(t *testing.T) {
	env := setupCLIEnv(t)

	out := env.mustRun(t, "run")
	for _, want := range []string{"eda\trecomputed", "evaluation\trecomputed", "baseline\ttest"} {
		if !strings.Contains(out, want) {
			t.Fatalf("run output missing %q:\n%s", want, out)
		}
	}

	out = env.mustRun(t, "artifacts", "list")
	for _, want := range []string{"model/baseline", "features/vocabulary", "preprocessing/split"} {
		if !strings.Contains(out, want) {
			t.Fatalf("artifact list missing %q:\n%s", want, out)
		}
	}

	out = env.mustRun(t, "runs")
	if !strings.Contains(out, "succeeded") {
		t.Fatalf("runs output missing succeeded run:\n%s", out)
	}
	runID := strings.Fields(strings.Split(out, "\n")[1])[0]
	out = env.mustRun(t, "runs", "show", runID)
	if !strings.Contains(out, "training\trecomputed") || !strings.Contains(out, "baseline\tvalidation") {
		t.Fatalf("runs show output unexpected:\n%s", out)
	}

	out = env.mustRun(t, "predict", "moor0 the moor1 and moor2 of moor3")
	if !strings.Contains(out, "Author C") {
		t.Fatalf("predict output unexpected:\n%s", out)
	}
}

func TestRunCachedStages(t *testing.T) {
	env := setupCLIEnv(t)
	env.mustRun(t, "run")

	out := env.mustRun(t, "run",
		"--enable-eda=false", "--enable-preprocessing=false", "--enable-feature-engineering=false",
		"--enable-training=false", "--enable-evaluation=false")
	for _, want := range []string{"eda\tskipped", "training\tskipped", "evaluation\tskipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("cached run output missing %q:\n%s", want, out)
		}
	}
}

func TestRunFailsWhenDisabledStageUncached(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := env.run(t, "run", "--enable-feature-engineering=false")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "feature_engineering") {
		t.Fatalf("error does not name the stage: %v", err)
	}
	if !strings.Contains(out, "feature_engineering\tfailed") {
		t.Fatalf("report missing failed stage:\n%s", out)
	}
}

func TestRunRejectsUnknownModel(t *testing.T) {
	env := setupCLIEnv(t)
	if _, err := env.run(t, "run", "--model", "transformer"); err == nil {
		t.Fatal("expected unknown architecture error")
	}
}

func TestSplitPreview(t *testing.T) {
	env := setupCLIEnv(t)
	out := env.mustRun(t, "split")
	if !strings.Contains(out, "Author A\t6\t2\t2") || !strings.Contains(out, "total\t18\t6\t6") {
		t.Fatalf("split preview unexpected:\n%s", out)
	}
	entries, err := os.ReadDir(env.cfg.Paths.ArtifactDir)
	if err == nil && len(entries) > 0 {
		t.Fatalf("split preview wrote artifacts: %v", entries)
	}
}

func TestArtifactsPruneKeepsCurrentPlan(t *testing.T) {
	env := setupCLIEnv(t)
	env.mustRun(t, "run")
	env.mustRun(t, "run", "--seed", "99")

	out := env.mustRun(t, "artifacts", "prune", "--keep", "1")
	if !strings.Contains(out, "Pruned") {
		t.Fatalf("prune output unexpected:\n%s", out)
	}
	out = env.mustRun(t, "run",
		"--seed", "99",
		"--enable-eda=false", "--enable-preprocessing=false", "--enable-feature-engineering=false",
		"--enable-training=false", "--enable-evaluation=false")
	if !strings.Contains(out, "evaluation\tskipped") {
		t.Fatalf("latest run artifacts were pruned:\n%s", out)
	}
}

func TestArtifactsSchema(t *testing.T) {
	env := setupCLIEnv(t)
	out := env.mustRun(t, "artifacts", "schema")
	if !strings.Contains(out, "trained-model-bundle") {
		t.Fatalf("schema list unexpected:\n%s", out)
	}
	out = env.mustRun(t, "artifacts", "schema", "label-bijection")
	if !strings.Contains(out, `"authors"`) {
		t.Fatalf("label schema unexpected:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLIEnv(t)

	out := env.mustRun(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("validate output unexpected:\n%s", out)
	}
	out = env.mustRun(t, "config", "show")
	if !strings.Contains(out, "[split]") || !strings.Contains(out, "seed = 7") {
		t.Fatalf("show output unexpected:\n%s", out)
	}

	target := filepath.Join(testsupport.BaseDir(env.cfg), "fresh", "config.toml")
	env.mustRun(t, "config", "init", "--path", target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}
