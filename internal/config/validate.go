package config

import (
	"maps"
	"math"
	"slices"

	"authorship/internal/failure"
)

// ProportionTolerance is the allowed deviation of split.proportions from 1.0.
const ProportionTolerance = 1e-6

// Validate ensures the configuration is usable. Every failure is a
// failure.ConfigurationError naming the offending key, raised before any
// stage runs.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validatePaths,
		c.validateCorpus,
		c.validateSplit,
		c.validateFeatures,
		c.validateModels,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ArtifactDir == "" {
		return failure.Configf("paths.artifact_dir", "must be set")
	}
	return nil
}

// RequireCorpus reports whether a corpus source is configured. Commands that
// only inspect the artifact store or ledger do not need one.
func (c *Config) RequireCorpus() error {
	if len(c.Corpus.Paths) == 0 {
		return failure.Configf("corpus.paths", "must list at least one CSV file or glob pattern (or set AUTHORSHIP_CORPUS)")
	}
	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.TextColumn == "" {
		return failure.Configf("corpus.text_column", "must be set")
	}
	if c.Corpus.AuthorColumn == "" {
		return failure.Configf("corpus.author_column", "must be set")
	}
	return nil
}

func (c *Config) validateSplit() error {
	return ValidateProportions(c.Split.Proportions)
}

// ValidateProportions checks a train/validation/test triple.
func ValidateProportions(p []float64) error {
	if len(p) != 3 {
		return failure.Configf("split.proportions", "must have exactly 3 entries (train, validation, test), got %d", len(p))
	}
	sum := 0.0
	for i, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return failure.Configf("split.proportions", "entry %d must be between 0 and 1, got %v", i, v)
		}
		sum += v
	}
	if p[0] <= 0 {
		return failure.Configf("split.proportions", "train proportion must be positive")
	}
	if math.Abs(sum-1) > ProportionTolerance {
		return failure.Configf("split.proportions", "must sum to 1.0, got %v", sum)
	}
	return nil
}

func (c *Config) validateFeatures() error {
	f := c.Features
	switch {
	case f.VocabMaxSize <= 0:
		return failure.Configf("features.vocab_max_size", "must be positive")
	case f.MinDocFreq < 1:
		return failure.Configf("features.min_doc_freq", "must be >= 1")
	case f.TopKFeatures <= 0:
		return failure.Configf("features.top_k_features", "must be positive")
	case f.NGramMax < 1 || f.NGramMax > 3:
		return failure.Configf("features.ngram_max", "must be between 1 and 3")
	case f.MaxSequenceLength <= 0:
		return failure.Configf("features.max_sequence_length", "must be positive")
	case f.Workers < 0:
		return failure.Configf("features.workers", "must be >= 0 (0 selects GOMAXPROCS)")
	}
	return nil
}

func (c *Config) validateModels() error {
	m := c.Models
	if (c.Stages.EnableTraining || c.Stages.EnableEvaluation) && len(c.EnabledArchitectures()) == 0 {
		return failure.Configf("models", "at least one of enable_baseline, enable_bag, enable_cnn, enable_rnn must be true when training or evaluation runs")
	}
	if m.EnableBaseline {
		if err := ensurePositive(map[string]float64{
			"models.baseline.epochs":        float64(m.Baseline.Epochs),
			"models.baseline.batch_size":    float64(m.Baseline.BatchSize),
			"models.baseline.learning_rate": m.Baseline.LearningRate,
		}); err != nil {
			return err
		}
		if err := ensureNonNegative("models.baseline", m.Baseline.L2, m.Baseline.Patience); err != nil {
			return err
		}
	}
	if m.EnableBag {
		if err := ensurePositive(map[string]float64{
			"models.bag.embedding_dim": float64(m.Bag.EmbeddingDim),
			"models.bag.epochs":        float64(m.Bag.Epochs),
			"models.bag.learning_rate": m.Bag.LearningRate,
		}); err != nil {
			return err
		}
		if err := ensureNonNegative("models.bag", m.Bag.L2, m.Bag.Patience); err != nil {
			return err
		}
	}
	if m.EnableCNN {
		if err := ensurePositive(map[string]float64{
			"models.cnn.embedding_dim": float64(m.CNN.EmbeddingDim),
			"models.cnn.filters":       float64(m.CNN.Filters),
			"models.cnn.kernel_width":  float64(m.CNN.KernelWidth),
			"models.cnn.epochs":        float64(m.CNN.Epochs),
			"models.cnn.learning_rate": m.CNN.LearningRate,
		}); err != nil {
			return err
		}
		if m.CNN.KernelWidth > c.Features.MaxSequenceLength {
			return failure.Configf("models.cnn.kernel_width", "must not exceed features.max_sequence_length (%d)", c.Features.MaxSequenceLength)
		}
		if err := ensureNonNegative("models.cnn", m.CNN.L2, m.CNN.Patience); err != nil {
			return err
		}
	}
	if m.EnableRNN {
		if err := ensurePositive(map[string]float64{
			"models.rnn.embedding_dim": float64(m.RNN.EmbeddingDim),
			"models.rnn.hidden_dim":    float64(m.RNN.HiddenDim),
			"models.rnn.epochs":        float64(m.RNN.Epochs),
			"models.rnn.learning_rate": m.RNN.LearningRate,
		}); err != nil {
			return err
		}
		if m.RNN.GradClip < 0 {
			return failure.Configf("models.rnn.grad_clip", "must be >= 0")
		}
		if err := ensureNonNegative("models.rnn", m.RNN.L2, m.RNN.Patience); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return failure.Configf("logging.format", "must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return failure.Configf("logging.level", "must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// EnabledArchitectures lists the selected model architectures in canonical order.
func (c *Config) EnabledArchitectures() []string {
	var out []string
	if c.Models.EnableBaseline {
		out = append(out, "baseline")
	}
	if c.Models.EnableBag {
		out = append(out, "bag")
	}
	if c.Models.EnableCNN {
		out = append(out, "cnn")
	}
	if c.Models.EnableRNN {
		out = append(out, "rnn")
	}
	return out
}

func ensurePositive(values map[string]float64) error {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		if v := values[key]; !(v > 0) {
			return failure.Configf(key, "must be positive")
		}
	}
	return nil
}

func ensureNonNegative(section string, l2 float64, patience int) error {
	if l2 < 0 {
		return failure.Configf(section+".l2", "must be >= 0")
	}
	if patience < 0 {
		return failure.Configf(section+".patience", "must be >= 0")
	}
	return nil
}
