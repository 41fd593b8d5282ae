package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"authorship/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("fs", dir, 1); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckFreeSpace("fs", dir, 1<<62); r.Passed {
		t.Fatal("expected failure for impossible requirement")
	}
	if r := CheckFreeSpace("fs", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckCorpusFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("text,author\nx,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckCorpusFiles(context.Background(), "corpus", []string{filepath.Join(dir, "*.csv")}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckCorpusFiles(context.Background(), "corpus", []string{filepath.Join(dir, "*.tsv")}); r.Passed {
		t.Fatal("expected failure when nothing matches")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Corpus.Paths = nil

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_MissingCorpus(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Corpus.Paths = []string{filepath.Join(t.TempDir(), "missing.csv")}

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "Corpus inputs" {
		t.Fatalf("expected corpus failure, got %+v", failed)
	}
}
