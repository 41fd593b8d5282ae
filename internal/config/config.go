package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-disk locations.
type Paths struct {
	ArtifactDir string `toml:"artifact_dir"`
	LogDir      string `toml:"log_dir"`
	LedgerPath  string `toml:"ledger_path"`
}

// Corpus describes the cleaned tabular input.
type Corpus struct {
	// Paths are CSV files or doublestar glob patterns (data/**/*.csv).
	Paths         []string `toml:"paths"`
	IDColumn      string   `toml:"id_column"`
	TextColumn    string   `toml:"text_column"`
	AuthorColumn  string   `toml:"author_column"`
	TitleColumn   string   `toml:"title_column"`
	ChapterColumn string   `toml:"chapter_column"`
}

// Stages holds the per-stage enable flags. Enabled stages recompute and
// persist; disabled stages load their artifacts or fail.
type Stages struct {
	EnableEDA                bool `toml:"enable_eda"`
	EnablePreprocessing      bool `toml:"enable_preprocessing"`
	EnableFeatureEngineering bool `toml:"enable_feature_engineering"`
	EnableTraining           bool `toml:"enable_training"`
	EnableEvaluation         bool `toml:"enable_evaluation"`
}

// Split controls corpus partitioning. Seed also drives every other stochastic
// step (training shuffles, weight initialisation).
type Split struct {
	Seed        int64     `toml:"seed"`
	Proportions []float64 `toml:"proportions"`
}

// Features bounds vocabulary fitting and feature selection.
type Features struct {
	VocabMaxSize      int  `toml:"vocab_max_size"`
	MinDocFreq        int  `toml:"min_doc_freq"`
	TopKFeatures      int  `toml:"top_k_features"`
	NGramMax          int  `toml:"ngram_max"`
	UseIDF            bool `toml:"use_idf"`
	SublinearTF       bool `toml:"sublinear_tf"`
	Normalize         bool `toml:"normalize"`
	MaxSequenceLength int  `toml:"max_sequence_length"`
	Workers           int  `toml:"workers"`
}

// LinearModel configures the TF-IDF logistic-regression baseline.
type LinearModel struct {
	Epochs       int     `toml:"epochs"`
	BatchSize    int     `toml:"batch_size"`
	LearningRate float64 `toml:"learning_rate"`
	L2           float64 `toml:"l2"`
	Patience     int     `toml:"patience"`
}

// BagModel configures the mean-pooled embedding classifier.
type BagModel struct {
	EmbeddingDim int     `toml:"embedding_dim"`
	Epochs       int     `toml:"epochs"`
	LearningRate float64 `toml:"learning_rate"`
	L2           float64 `toml:"l2"`
	Patience     int     `toml:"patience"`
}

// CNNModel configures the convolutional sequence classifier.
type CNNModel struct {
	EmbeddingDim int     `toml:"embedding_dim"`
	Filters      int     `toml:"filters"`
	KernelWidth  int     `toml:"kernel_width"`
	Epochs       int     `toml:"epochs"`
	LearningRate float64 `toml:"learning_rate"`
	L2           float64 `toml:"l2"`
	Patience     int     `toml:"patience"`
}

// RNNModel configures the recurrent sequence classifier.
type RNNModel struct {
	EmbeddingDim int     `toml:"embedding_dim"`
	HiddenDim    int     `toml:"hidden_dim"`
	Epochs       int     `toml:"epochs"`
	LearningRate float64 `toml:"learning_rate"`
	L2           float64 `toml:"l2"`
	Patience     int     `toml:"patience"`
	GradClip     float64 `toml:"grad_clip"`
}

// Models holds the per-architecture selection flags and hyperparameters.
type Models struct {
	EnableBaseline bool `toml:"enable_baseline"`
	EnableBag      bool `toml:"enable_bag"`
	EnableCNN      bool `toml:"enable_cnn"`
	EnableRNN      bool `toml:"enable_rnn"`

	Baseline LinearModel `toml:"baseline"`
	Bag      BagModel    `toml:"bag"`
	CNN      CNNModel    `toml:"cnn"`
	RNN      RNNModel    `toml:"rnn"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Server configures the inference HTTP service.
type Server struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for a pipeline run.
//
// Configuration sections:
//   - Paths: artifact store, logs, run ledger
//   - Corpus: cleaned CSV inputs and column names
//   - Stages: per-stage enable flags
//   - Split: seed and train/validation/test proportions
//   - Features: vocabulary bounds and feature selection
//   - Models: architecture selection and typed hyperparameters
//   - Logging: log format and level
//   - Server: inference API bind address
type Config struct {
	Paths    Paths    `toml:"paths"`
	Corpus   Corpus   `toml:"corpus"`
	Stages   Stages   `toml:"stages"`
	Split    Split    `toml:"split"`
	Features Features `toml:"features"`
	Models   Models   `toml:"models"`
	Logging  Logging  `toml:"logging"`
	Server   Server   `toml:"server"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/authorship/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The string result is the resolved path and the
// bool reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Parse decodes TOML content on top of the defaults, then normalizes and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("authorship.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// applyEnv layers AUTHORSHIP_* environment overrides on top of file values.
func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("AUTHORSHIP_CORPUS")); v != "" {
		c.Corpus.Paths = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("AUTHORSHIP_ARTIFACT_DIR")); v != "" {
		c.Paths.ArtifactDir = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTHORSHIP_SEED")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &envError{key: "AUTHORSHIP_SEED", value: v, err: err}
		}
		c.Split.Seed = seed
	}
	return nil
}

type envError struct {
	key   string
	value string
	err   error
}

func (e *envError) Error() string {
	return fmt.Sprintf("environment %s=%q: %v", e.key, e.value, e.err)
}

func (e *envError) Unwrap() error { return e.err }

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.ArtifactDir, c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
