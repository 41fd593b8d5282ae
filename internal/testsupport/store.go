package testsupport

import (
	"testing"

	"authorship/internal/artifact"
	"authorship/internal/config"
	"authorship/internal/logging"
)

// MustOpenStore opens the artifact store configured in cfg.
func MustOpenStore(t testing.TB, cfg *config.Config) *artifact.Store {
	t.Helper()
	store, err := artifact.Open(cfg.Paths.ArtifactDir, logging.NewNop())
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	return store
}
