package workflow

import (
	"fmt"
	"path/filepath"

	"authorship/internal/artifact"
	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/eda"
	"authorship/internal/failure"
	"authorship/internal/fileutil"
	"authorship/internal/model"
	"authorship/internal/model/catalog"
	"authorship/internal/stage"
)

// Artifact names for the fixed pipeline outputs. Model and metrics names are
// per architecture (model.Architecture.ArtifactName / MetricsName).
const (
	ProfileArtifact    = "eda/profile"
	PreparedArtifact   = "preprocessing/corpus"
	LabelsArtifact     = "preprocessing/labels"
	SplitArtifact      = "preprocessing/split"
	VocabularyArtifact = "features/vocabulary"
	RankingArtifact    = "features/ranking"
)

// normalizationVersion identifies the text normalisation rules. Bump it when
// textutil.Normalize changes output.
const normalizationVersion = "nfkc-casefold-v1"

// InputFile is the digest of one corpus file.
type InputFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Plan holds the fingerprint of every artifact a run reads or writes.
type Plan struct {
	Inputs        []InputFile
	Corpus        string
	Profile       string
	Prepared      string
	Labels        string
	Split         string
	Vocabulary    string
	Ranking       string
	Architectures []model.Architecture
	Models        map[model.Architecture]string
	Metrics       map[model.Architecture]string
}

type corpusParams struct {
	Files   []InputFile    `json:"files"`
	Columns corpus.Columns `json:"columns"`
}

type profileParams struct {
	Stage    string `json:"stage"`
	TopTerms int    `json:"top_terms"`
}

type preparedParams struct {
	Stage         string `json:"stage"`
	Normalization string `json:"normalization"`
}

type splitParams struct {
	Seed        int64     `json:"seed"`
	Proportions []float64 `json:"proportions"`
}

type vocabularyParams struct {
	VocabMaxSize int  `json:"vocab_max_size"`
	MinDocFreq   int  `json:"min_doc_freq"`
	NGramMax     int  `json:"ngram_max"`
	UseIDF       bool `json:"use_idf"`
	SublinearTF  bool `json:"sublinear_tf"`
	Normalize    bool `json:"normalize"`
}

type modelParams struct {
	Architecture      model.Architecture `json:"architecture"`
	Hyper             any                `json:"hyper"`
	Seed              int64              `json:"seed"`
	TopK              int                `json:"top_k,omitempty"`
	MaxSequenceLength int                `json:"max_sequence_length,omitempty"`
}

// ColumnsFromConfig maps the [corpus] section onto loader columns.
func ColumnsFromConfig(cfg config.Corpus) corpus.Columns {
	return corpus.Columns{
		ID:      cfg.IDColumn,
		Text:    cfg.TextColumn,
		Author:  cfg.AuthorColumn,
		Title:   cfg.TitleColumn,
		Chapter: cfg.ChapterColumn,
	}
}

// DigestInputs hashes every corpus file the config resolves to.
func DigestInputs(cfg *config.Config) ([]InputFile, error) {
	files, err := corpus.ResolvePaths(cfg.Corpus.Paths)
	if err != nil {
		return nil, err
	}
	out := make([]InputFile, 0, len(files))
	for _, path := range files {
		sum, size, err := fileutil.HashFile(path)
		if err != nil {
			return nil, fmt.Errorf("digest corpus input: %w", err)
		}
		out = append(out, InputFile{Name: filepath.Base(path), SHA256: sum, Size: size})
	}
	return out, nil
}

// NewPlan derives every fingerprint from cfg, the model registry parameters,
// and the corpus input digests. Each fingerprint chains the fingerprints of
// the artifacts it is computed from.
func NewPlan(cfg *config.Config, registry *model.Registry, inputs []InputFile) (Plan, error) {
	p := Plan{
		Inputs:        inputs,
		Architectures: catalog.Selected(cfg.Models),
		Models:        make(map[model.Architecture]string),
		Metrics:       make(map[model.Architecture]string),
	}
	var err error
	fp := func(params any, upstream ...string) string {
		if err != nil {
			return ""
		}
		var out string
		out, err = artifact.Fingerprint(params, upstream...)
		return out
	}

	p.Corpus = fp(corpusParams{Files: inputs, Columns: ColumnsFromConfig(cfg.Corpus)})
	p.Profile = fp(profileParams{Stage: string(stage.EDA), TopTerms: eda.DefaultTopTerms}, p.Corpus)
	p.Prepared = fp(preparedParams{Stage: string(stage.Preprocessing), Normalization: normalizationVersion}, p.Corpus, p.Profile)
	p.Labels = fp(struct {
		Order string `json:"order"`
	}{Order: "sorted"}, p.Prepared)
	p.Split = fp(splitParams{Seed: cfg.Split.Seed, Proportions: cfg.Split.Proportions}, p.Prepared)
	p.Vocabulary = fp(vocabularyParams{
		VocabMaxSize: cfg.Features.VocabMaxSize,
		MinDocFreq:   cfg.Features.MinDocFreq,
		NGramMax:     cfg.Features.NGramMax,
		UseIDF:       cfg.Features.UseIDF,
		SublinearTF:  cfg.Features.SublinearTF,
		Normalize:    cfg.Features.Normalize,
	}, p.Split, p.Prepared)
	p.Ranking = fp(struct {
		Method string `json:"method"`
	}{Method: "chi2"}, p.Vocabulary, p.Labels)

	for _, arch := range p.Architectures {
		spec, lookupErr := registry.Lookup(arch)
		if lookupErr != nil {
			return Plan{}, failure.Configf("models", "%v", lookupErr)
		}
		params := modelParams{Architecture: arch, Hyper: spec.Params, Seed: cfg.Split.Seed}
		if arch == model.Baseline {
			params.TopK = cfg.Features.TopKFeatures
		} else {
			params.MaxSequenceLength = cfg.Features.MaxSequenceLength
		}
		p.Models[arch] = fp(params, p.Vocabulary, p.Ranking, p.Labels, p.Split)
		p.Metrics[arch] = fp(struct {
			Architecture model.Architecture `json:"architecture"`
		}{arch}, p.Models[arch], p.Split, p.Prepared)
	}
	if err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Contract returns the feature contract models are trained against.
func (p Plan) Contract() model.Contract {
	return model.Contract{Vocabulary: p.Vocabulary, Labels: p.Labels, Ranking: p.Ranking}
}

// Outputs lists the artifacts a stage produces.
func (p Plan) Outputs(name stage.Name) []stage.Ref {
	switch name {
	case stage.EDA:
		return []stage.Ref{{Name: ProfileArtifact, Kind: artifact.KindProfile, Fingerprint: p.Profile}}
	case stage.Preprocessing:
		return []stage.Ref{
			{Name: PreparedArtifact, Kind: artifact.KindPreparedCorpus, Fingerprint: p.Prepared},
			{Name: LabelsArtifact, Kind: artifact.KindLabels, Fingerprint: p.Labels},
			{Name: SplitArtifact, Kind: artifact.KindSplit, Fingerprint: p.Split},
		}
	case stage.FeatureEngineering:
		return []stage.Ref{
			{Name: VocabularyArtifact, Kind: artifact.KindVocabulary, Fingerprint: p.Vocabulary},
			{Name: RankingArtifact, Kind: artifact.KindRanking, Fingerprint: p.Ranking},
		}
	case stage.Training:
		refs := make([]stage.Ref, 0, len(p.Architectures))
		for _, arch := range p.Architectures {
			refs = append(refs, stage.Ref{Name: arch.ArtifactName(), Kind: artifact.KindModel, Fingerprint: p.Models[arch]})
		}
		return refs
	case stage.Evaluation:
		refs := make([]stage.Ref, 0, len(p.Architectures))
		for _, arch := range p.Architectures {
			refs = append(refs, stage.Ref{Name: arch.MetricsName(), Kind: artifact.KindMetrics, Fingerprint: p.Metrics[arch]})
		}
		return refs
	default:
		return nil
	}
}

// All returns every artifact in the plan keyed by name.
func (p Plan) All() map[string]string {
	out := make(map[string]string)
	for _, name := range stage.Order() {
		for _, ref := range p.Outputs(name) {
			out[ref.Name] = ref.Fingerprint
		}
	}
	return out
}
