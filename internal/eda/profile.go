package eda

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"

	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/textutil"
)

// DefaultTopTerms is the number of frequent terms kept in a profile.
const DefaultTopTerms = 25

// AuthorStats summarises one author's passages.
type AuthorStats struct {
	Author     string  `json:"author"`
	Documents  int     `json:"documents"`
	Tokens     int     `json:"tokens"`
	MeanTokens float64 `json:"mean_tokens"`
	Share      float64 `json:"share"`
}

// LengthStats describes passage length in tokens.
type LengthStats struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    int     `json:"p95"`
}

// Duplicate groups documents whose normalised text is identical.
type Duplicate struct {
	IDs     []string `json:"ids"`
	Authors []string `json:"authors"`
}

// Conflicting reports whether the duplicated passage is attributed to more
// than one author.
func (d Duplicate) Conflicting() bool { return len(d.Authors) > 1 }

// TermCount is a corpus-wide token frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Profile is the EDA stage's persisted output.
type Profile struct {
	Documents   int           `json:"documents"`
	Authors     []string      `json:"authors"`
	PerAuthor   []AuthorStats `json:"per_author"`
	Length      LengthStats   `json:"length"`
	Vocabulary  int           `json:"vocabulary"`
	EmptyTexts  []string      `json:"empty_texts,omitempty"`
	Duplicates  []Duplicate   `json:"duplicates,omitempty"`
	TopTerms    []TermCount   `json:"top_terms"`
	Imbalance   float64       `json:"imbalance"`
	SmallestDoc string        `json:"smallest_document,omitempty"`
}

// Build profiles c. Author names are canonicalised the same way
// preprocessing canonicalises them, so the known author set can be compared
// against the prepared corpus directly.
func Build(c *corpus.Corpus, topTerms int) (Profile, error) {
	if c == nil || c.Len() == 0 {
		return Profile{}, failure.Wrap(failure.ErrInsufficientData, "eda", "profile", "corpus has no documents", nil)
	}
	if topTerms <= 0 {
		topTerms = DefaultTopTerms
	}

	type authorAcc struct {
		docs   int
		tokens int
	}
	byAuthor := make(map[string]*authorAcc)
	byText := make(map[string][]corpus.Document)
	termCounts := make(map[string]int)
	var lengths []int
	p := Profile{Documents: c.Len()}
	shortest := -1

	for _, id := range c.IDs() {
		doc, _ := c.Get(id)
		author := textutil.CanonicalAuthor(doc.Author)
		text := doc.Clean
		if text == "" {
			text = textutil.Normalize(doc.Raw)
		}
		acc := byAuthor[author]
		if acc == nil {
			acc = &authorAcc{}
			byAuthor[author] = acc
		}
		acc.docs++
		if text == "" {
			p.EmptyTexts = append(p.EmptyTexts, id)
			lengths = append(lengths, 0)
			continue
		}
		tokens := textutil.Tokenize(text)
		acc.tokens += len(tokens)
		lengths = append(lengths, len(tokens))
		if shortest < 0 || len(tokens) < shortest {
			shortest = len(tokens)
			p.SmallestDoc = id
		}
		for _, tok := range tokens {
			termCounts[tok]++
		}
		byText[text] = append(byText[text], doc)
	}

	p.Authors = slices.Sorted(maps.Keys(byAuthor))
	minDocs, maxDocs := math.MaxInt, 0
	for _, a := range p.Authors {
		acc := byAuthor[a]
		stats := AuthorStats{
			Author:    a,
			Documents: acc.docs,
			Tokens:    acc.tokens,
			Share:     float64(acc.docs) / float64(p.Documents),
		}
		if acc.docs > 0 {
			stats.MeanTokens = float64(acc.tokens) / float64(acc.docs)
		}
		p.PerAuthor = append(p.PerAuthor, stats)
		minDocs = min(minDocs, acc.docs)
		maxDocs = max(maxDocs, acc.docs)
	}
	if minDocs > 0 {
		p.Imbalance = float64(maxDocs) / float64(minDocs)
	}

	p.Length = lengthStats(lengths)
	p.Vocabulary = len(termCounts)
	p.TopTerms = topCounts(termCounts, topTerms)
	p.Duplicates = duplicates(byText)
	return p, nil
}

// Knows reports whether author is in the profile's known author set.
func (p Profile) Knows(author string) bool {
	_, ok := slices.BinarySearch(p.Authors, author)
	return ok
}

// CheckAuthors verifies every author of c belongs to the known author set.
func (p Profile) CheckAuthors(c *corpus.Corpus) error {
	var unknown []string
	for _, a := range c.Authors() {
		if !p.Knows(a) {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return failure.Wrap(failure.ErrContractMismatch, "preprocessing", "validate labels",
		fmt.Sprintf("author(s) %s missing from the corpus profile", strings.Join(unknown, ", ")), nil)
}

// ConflictingDuplicates returns the duplicate groups attributed to more than
// one author.
func (p Profile) ConflictingDuplicates() []Duplicate {
	var out []Duplicate
	for _, d := range p.Duplicates {
		if d.Conflicting() {
			out = append(out, d)
		}
	}
	return out
}

func lengthStats(lengths []int) LengthStats {
	if len(lengths) == 0 {
		return LengthStats{}
	}
	sorted := slices.Clone(lengths)
	slices.Sort(sorted)
	var sum int
	for _, n := range sorted {
		sum += n
	}
	n := len(sorted)
	median := float64(sorted[n/2])
	if n%2 == 0 {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	p95 := sorted[min(n-1, int(math.Ceil(0.95*float64(n)))-1)]
	return LengthStats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   float64(sum) / float64(n),
		Median: median,
		P95:    p95,
	}
}

func topCounts(counts map[string]int, k int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, n := range counts {
		out = append(out, TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

func duplicates(byText map[string][]corpus.Document) []Duplicate {
	var out []Duplicate
	for _, docs := range byText {
		if len(docs) < 2 {
			continue
		}
		d := Duplicate{}
		for _, doc := range docs {
			d.IDs = append(d.IDs, doc.ID)
			d.Authors = append(d.Authors, textutil.CanonicalAuthor(doc.Author))
		}
		slices.Sort(d.IDs)
		slices.Sort(d.Authors)
		d.Authors = slices.Compact(d.Authors)
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Duplicate) int { return cmp.Compare(a.IDs[0], b.IDs[0]) })
	return out
}
