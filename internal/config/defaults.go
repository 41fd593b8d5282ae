package config

const (
	defaultArtifactDir       = "~/.local/share/authorship/artifacts"
	defaultLogDir            = "~/.local/share/authorship/logs"
	defaultLedgerPath        = "~/.local/share/authorship/ledger.db"
	defaultTextColumn        = "text"
	defaultAuthorColumn      = "author"
	defaultSeed              = 42
	defaultVocabMaxSize      = 20000
	defaultMinDocFreq        = 2
	defaultTopKFeatures      = 5000
	defaultNGramMax          = 1
	defaultMaxSequenceLength = 200
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultServerBind        = "127.0.0.1:7489"
)

// Default returns a Config populated with repository defaults. Every stage is
// enabled so a fresh checkout computes everything on the first run.
func Default() Config {
	return Config{
		Paths: Paths{
			ArtifactDir: defaultArtifactDir,
			LogDir:      defaultLogDir,
			LedgerPath:  defaultLedgerPath,
		},
		Corpus: Corpus{
			TextColumn:   defaultTextColumn,
			AuthorColumn: defaultAuthorColumn,
		},
		Stages: Stages{
			EnableEDA:                true,
			EnablePreprocessing:      true,
			EnableFeatureEngineering: true,
			EnableTraining:           true,
			EnableEvaluation:         true,
		},
		Split: Split{
			Seed:        defaultSeed,
			Proportions: []float64{0.7, 0.15, 0.15},
		},
		Features: Features{
			VocabMaxSize:      defaultVocabMaxSize,
			MinDocFreq:        defaultMinDocFreq,
			TopKFeatures:      defaultTopKFeatures,
			NGramMax:          defaultNGramMax,
			UseIDF:            true,
			SublinearTF:       true,
			Normalize:         true,
			MaxSequenceLength: defaultMaxSequenceLength,
		},
		Models: Models{
			EnableBaseline: true,
			Baseline: LinearModel{
				Epochs:       30,
				BatchSize:    32,
				LearningRate: 0.5,
				L2:           1e-5,
				Patience:     4,
			},
			Bag: BagModel{
				EmbeddingDim: 64,
				Epochs:       15,
				LearningRate: 0.05,
				L2:           1e-6,
				Patience:     3,
			},
			CNN: CNNModel{
				EmbeddingDim: 48,
				Filters:      64,
				KernelWidth:  3,
				Epochs:       10,
				LearningRate: 0.02,
				L2:           1e-6,
				Patience:     3,
			},
			RNN: RNNModel{
				EmbeddingDim: 48,
				HiddenDim:    64,
				Epochs:       10,
				LearningRate: 0.01,
				L2:           1e-6,
				Patience:     3,
				GradClip:     5,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
