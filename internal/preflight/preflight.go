package preflight

import (
	"context"

	"authorship/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Artifact directory", cfg.Paths.ArtifactDir))
	results = append(results, CheckFreeSpace("Artifact filesystem", cfg.Paths.ArtifactDir, MinFreeBytes))

	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if len(cfg.Corpus.Paths) > 0 {
		results = append(results, CheckCorpusFiles(ctx, "Corpus inputs", cfg.Corpus.Paths))
	}
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
