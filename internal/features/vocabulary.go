package features

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/labels"
	"authorship/internal/split"
	"authorship/internal/textutil"
)

// Vocabulary is an immutable term-to-index mapping with the weighting
// options it was fitted with.
type Vocabulary struct {
	terms     []string
	index     map[string]int
	docFreq   []int
	idf       []float64
	documents int
	ngramMax  int
	useIDF    bool
	sublinear bool
	normalize bool
}

// Len returns the number of in-vocabulary terms.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Dim returns the vector width: every term plus the OOV column.
func (v *Vocabulary) Dim() int { return len(v.terms) + 1 }

// OOV returns the out-of-vocabulary column and sequence id.
func (v *Vocabulary) OOV() int { return len(v.terms) }

// Pad returns the padding id used by sequence encodings.
func (v *Vocabulary) Pad() int { return len(v.terms) + 1 }

// SequenceSize returns the number of distinct ids Encode can emit.
func (v *Vocabulary) SequenceSize() int { return len(v.terms) + 2 }

// Index returns the column of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Term returns the term at column i.
func (v *Vocabulary) Term(i int) string {
	if i == v.OOV() {
		return "<oov>"
	}
	if i < 0 || i >= len(v.terms) {
		return ""
	}
	return v.terms[i]
}

// Terms returns the vocabulary in index order.
func (v *Vocabulary) Terms() []string { return slices.Clone(v.terms) }

// NGramMax returns the longest n-gram the vocabulary indexes.
func (v *Vocabulary) NGramMax() int { return v.ngramMax }

// Encode maps text to a sequence of unigram ids for the sequence models,
// truncated to maxLen. Unknown words map to OOV. Empty text encodes as a
// single PAD so every sequence has at least one position.
func (v *Vocabulary) Encode(text string, maxLen int) []int {
	tokens := textutil.Tokenize(text)
	if maxLen > 0 && len(tokens) > maxLen {
		tokens = tokens[:maxLen]
	}
	if len(tokens) == 0 {
		return []int{v.Pad()}
	}
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		if idx, ok := v.index[tok]; ok {
			ids[i] = idx
		} else {
			ids[i] = v.OOV()
		}
	}
	return ids
}

// Fit builds the vocabulary and feature ranking from the training partition.
func Fit(train split.TrainSet, lm *labels.Map, cfg config.Features) (*Vocabulary, Ranking, error) {
	docs := train.Documents()
	if len(docs) == 0 {
		return nil, Ranking{}, failure.Wrap(failure.ErrInsufficientData, "feature_engineering", "fit", "training partition is empty", nil)
	}
	v, err := buildVocabulary(docs, cfg)
	if err != nil {
		return nil, Ranking{}, err
	}
	matrix, err := TransformParallel(docs, v, cfg.Workers)
	if err != nil {
		return nil, Ranking{}, err
	}
	authors := make([]string, len(docs))
	for i, doc := range docs {
		authors[i] = doc.Author
	}
	y, err := lm.Encode(authors)
	if err != nil {
		return nil, Ranking{}, err
	}
	ranking := RankChiSquare(matrix, y, lm.Len(), v)
	return v, ranking, nil
}

type candidate struct {
	term  string
	order int
	df    int
}

func buildVocabulary(docs []corpus.Document, cfg config.Features) (*Vocabulary, error) {
	ngramMax := max(cfg.NGramMax, 1)
	seen := make(map[string]int)
	var candidates []candidate
	for _, doc := range docs {
		if doc.Clean == "" {
			return nil, &failure.UnknownDocumentError{DocumentID: doc.ID}
		}
		inDoc := make(map[int]bool)
		for _, term := range textutil.Terms(textutil.Tokenize(doc.Clean), ngramMax) {
			pos, ok := seen[term]
			if !ok {
				pos = len(candidates)
				seen[term] = pos
				candidates = append(candidates, candidate{term: term, order: pos})
			}
			if !inDoc[pos] {
				inDoc[pos] = true
				candidates[pos].df++
			}
		}
	}

	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.df >= cfg.MinDocFreq {
			kept = append(kept, c)
		}
	}
	if cfg.VocabMaxSize > 0 && len(kept) > cfg.VocabMaxSize {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].df > kept[j].df })
		kept = kept[:cfg.VocabMaxSize]
		sort.Slice(kept, func(i, j int) bool { return kept[i].order < kept[j].order })
	}
	if len(kept) == 0 {
		return nil, &failure.EmptyVocabularyError{Candidates: len(candidates), MinDocFreq: cfg.MinDocFreq, MaxSize: cfg.VocabMaxSize}
	}

	v := &Vocabulary{
		terms:     make([]string, len(kept)),
		index:     make(map[string]int, len(kept)),
		docFreq:   make([]int, len(kept)),
		documents: len(docs),
		ngramMax:  ngramMax,
		useIDF:    cfg.UseIDF,
		sublinear: cfg.SublinearTF,
		normalize: cfg.Normalize,
	}
	for i, c := range kept {
		v.terms[i] = c.term
		v.index[c.term] = i
		v.docFreq[i] = c.df
	}
	v.idf = smoothIDF(v.docFreq, v.documents)
	return v, nil
}

// smoothIDF computes ln((1+N)/(1+df))+1 per term plus the OOV column (df=0).
func smoothIDF(docFreq []int, n int) []float64 {
	idf := make([]float64, len(docFreq)+1)
	for i, df := range docFreq {
		idf[i] = math.Log(float64(1+n)/float64(1+df)) + 1
	}
	idf[len(docFreq)] = math.Log(float64(1+n)) + 1
	return idf
}

// VocabularyPayload is the persisted vocabulary-mapping.
type VocabularyPayload struct {
	Terms       []string `json:"terms"`
	DocFreq     []int    `json:"doc_freq"`
	Documents   int      `json:"documents"`
	NGramMax    int      `json:"ngram_max"`
	UseIDF      bool     `json:"use_idf"`
	SublinearTF bool     `json:"sublinear_tf"`
	Normalize   bool     `json:"normalize"`
}

// Payload returns the persisted form.
func (v *Vocabulary) Payload() VocabularyPayload {
	return VocabularyPayload{
		Terms:       slices.Clone(v.terms),
		DocFreq:     slices.Clone(v.docFreq),
		Documents:   v.documents,
		NGramMax:    v.ngramMax,
		UseIDF:      v.useIDF,
		SublinearTF: v.sublinear,
		Normalize:   v.normalize,
	}
}

// VocabularyFromPayload restores a fitted vocabulary.
func VocabularyFromPayload(p VocabularyPayload) (*Vocabulary, error) {
	if len(p.Terms) == 0 {
		return nil, &failure.EmptyVocabularyError{}
	}
	if len(p.DocFreq) != len(p.Terms) {
		return nil, fmt.Errorf("vocabulary payload: %d terms but %d document frequencies", len(p.Terms), len(p.DocFreq))
	}
	v := &Vocabulary{
		terms:     slices.Clone(p.Terms),
		index:     make(map[string]int, len(p.Terms)),
		docFreq:   slices.Clone(p.DocFreq),
		documents: p.Documents,
		ngramMax:  max(p.NGramMax, 1),
		useIDF:    p.UseIDF,
		sublinear: p.SublinearTF,
		normalize: p.Normalize,
	}
	for i, term := range v.terms {
		if _, dup := v.index[term]; dup {
			return nil, fmt.Errorf("vocabulary payload: duplicate term %q", term)
		}
		v.index[term] = i
	}
	v.idf = smoothIDF(v.docFreq, v.documents)
	return v, nil
}
