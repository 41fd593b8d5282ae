package testsupport

import (
	"path/filepath"
	"testing"

	"authorship/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Model hyperparameters are shrunk so training finishes in milliseconds on
// the fixture corpora.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ArtifactDir = filepath.Join(base, "artifacts")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfgVal.Corpus.Paths = []string{filepath.Join(base, "corpus.csv")}
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Split.Seed = 7
	cfgVal.Split.Proportions = []float64{0.6, 0.2, 0.2}
	cfgVal.Features.MinDocFreq = 1
	cfgVal.Features.TopKFeatures = 200
	cfgVal.Features.MaxSequenceLength = 40
	cfgVal.Features.Workers = 1
	cfgVal.Models.Baseline.Epochs = 15
	cfgVal.Models.Baseline.BatchSize = 8
	cfgVal.Models.Bag = config.BagModel{EmbeddingDim: 8, Epochs: 6, LearningRate: 0.1, Patience: 3}
	cfgVal.Models.CNN = config.CNNModel{EmbeddingDim: 8, Filters: 8, KernelWidth: 2, Epochs: 6, LearningRate: 0.05, Patience: 3}
	cfgVal.Models.RNN = config.RNNModel{EmbeddingDim: 8, HiddenDim: 8, Epochs: 6, LearningRate: 0.05, Patience: 3, GradClip: 5}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithModels enables exactly the named architectures.
func WithModels(archs ...string) ConfigOption {
	return func(b *configBuilder) {
		m := &b.cfg.Models
		m.EnableBaseline, m.EnableBag, m.EnableCNN, m.EnableRNN = false, false, false, false
		for _, a := range archs {
			switch a {
			case "baseline":
				m.EnableBaseline = true
			case "bag":
				m.EnableBag = true
			case "cnn":
				m.EnableCNN = true
			case "rnn":
				m.EnableRNN = true
			default:
				b.t.Fatalf("unknown architecture %q", a)
			}
		}
	}
}

// WithCorpusFile points the corpus at path.
func WithCorpusFile(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.Paths = []string{path}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ArtifactDir)
}

// CorpusPath returns the first configured corpus file.
func CorpusPath(cfg *config.Config) string {
	return cfg.Corpus.Paths[0]
}
