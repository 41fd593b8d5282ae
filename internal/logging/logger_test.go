package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"authorship/internal/config"
	"authorship/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "authorship.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleHandlerPromotesSubjectAndRun(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, "console", "info")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	ctx := logging.WithStage(logging.WithRunID(context.Background(), "run-1"), "training")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "trainer")).Info("epoch finished", logging.Int("train.epoch", 3))

	line := buf.String()
	for _, fragment := range []string{"INFO  training/trainer  epoch finished", "run=run-1", "train.epoch=3"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	for _, promoted := range []string{"stage=", "component=", "run_id="} {
		if strings.Contains(line, promoted) {
			t.Fatalf("%s should be promoted out of the attributes, got %q", promoted, line)
		}
	}
}

func TestJSONHandlerUsesLowercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, "json", "info")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	logger.Warn("careful", logging.String(logging.FieldArtifact, "vocabulary"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("level = %v, want warn", record["level"])
	}
	if record[logging.FieldArtifact] != "vocabulary" {
		t.Fatalf("artifact = %v", record[logging.FieldArtifact])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.NewWithWriter(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDebugLevelSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.NewWithWriter(&buf, "console", "info")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestConsoleHandlerShortensRunIDAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, "console", "info")
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}
	ctx := logging.WithRunID(context.Background(), "3f2a9c1e-7b4d-4c1a-9e2f-1a2b3c4d5e6f")
	logging.WithContext(ctx, logger).WithGroup("model").Info("trained", logging.String("arch", "rnn"), logging.Float64("loss", 0.123456789))

	line := buf.String()
	for _, fragment := range []string{"INFO  trained", "run=3f2a9c1e ", "model.arch=rnn", "model.loss=0.12346"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}
