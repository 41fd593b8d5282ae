package features

import (
	"fmt"
	"math"
	"sort"
)

// Scored is one ranked feature.
type Scored struct {
	Feature int     `json:"feature"`
	Term    string  `json:"term"`
	Score   float64 `json:"score"`
}

// Ranking orders vocabulary features by descending chi-square score with
// ties broken by ascending feature index.
type Ranking struct {
	Entries []Scored `json:"entries"`
}

// Len returns the number of ranked features.
func (r Ranking) Len() int { return len(r.Entries) }

// Top returns the first k entries, or all of them when k exceeds the length.
func (r Ranking) Top(k int) []Scored {
	if k < 0 {
		k = 0
	}
	k = min(k, len(r.Entries))
	out := make([]Scored, k)
	copy(out, r.Entries[:k])
	return out
}

// Validate checks ordering and index bounds against a vocabulary.
func (r Ranking) Validate(v *Vocabulary) error {
	for i, e := range r.Entries {
		if e.Feature < 0 || e.Feature >= v.Len() {
			return fmt.Errorf("ranking entry %d: feature %d outside vocabulary of %d", i, e.Feature, v.Len())
		}
		if i > 0 && !ranksBefore(r.Entries[i-1], e) {
			return fmt.Errorf("ranking entry %d: out of order", i)
		}
	}
	return nil
}

func ranksBefore(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Feature < b.Feature
}

// RankChiSquare scores every in-vocabulary column of m against class labels y.
// Observed counts are per-class sums of feature weights; expected counts are
// the class prior times the feature total. Features with an undefined score
// (zero expected mass) score zero. The OOV column is not ranked.
func RankChiSquare(m Matrix, y []int, classes int, v *Vocabulary) Ranking {
	features := v.Len()
	observed := make([][]float64, classes)
	for c := range observed {
		observed[c] = make([]float64, features)
	}
	classCount := make([]float64, classes)
	for r, row := range m.Rows {
		c := y[r]
		classCount[c]++
		for k, idx := range row.Indices {
			if idx < features {
				observed[c][idx] += row.Values[k]
			}
		}
	}
	n := float64(len(m.Rows))
	total := make([]float64, features)
	for c := range observed {
		for f, val := range observed[c] {
			total[f] += val
		}
	}

	entries := make([]Scored, features)
	for f := range features {
		var score float64
		for c := range classes {
			expected := classCount[c] / n * total[f]
			if expected == 0 {
				continue
			}
			d := observed[c][f] - expected
			score += d * d / expected
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		entries[f] = Scored{Feature: f, Term: v.Term(f), Score: score}
	}
	sort.SliceStable(entries, func(i, j int) bool { return ranksBefore(entries[i], entries[j]) })
	return Ranking{Entries: entries}
}

// Selection projects vectors onto the top-ranked features.
type Selection struct {
	features []int
	column   map[int]int
}

// Select keeps the top k ranked features. Column j of a projected vector is
// the j-th ranked feature.
func (r Ranking) Select(k int) *Selection {
	top := r.Top(k)
	s := &Selection{features: make([]int, len(top)), column: make(map[int]int, len(top))}
	for j, e := range top {
		s.features[j] = e.Feature
		s.column[e.Feature] = j
	}
	return s
}

// Len returns the projected width.
func (s *Selection) Len() int { return len(s.features) }

// Features returns the selected vocabulary indices in rank order.
func (s *Selection) Features() []int { return append([]int(nil), s.features...) }

// Project maps a row into the selected feature space. Unselected columns,
// including OOV, are dropped.
func (s *Selection) Project(row SparseVector) SparseVector {
	type pair struct {
		col int
		val float64
	}
	var pairs []pair
	for k, idx := range row.Indices {
		if col, ok := s.column[idx]; ok {
			pairs = append(pairs, pair{col, row.Values[k]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].col < pairs[j].col })
	out := SparseVector{Indices: make([]int, len(pairs)), Values: make([]float64, len(pairs))}
	for i, p := range pairs {
		out.Indices[i] = p.col
		out.Values[i] = p.val
	}
	return out
}

// ProjectMatrix projects every row of m.
func (s *Selection) ProjectMatrix(m Matrix) Matrix {
	out := Matrix{Rows: make([]SparseVector, len(m.Rows)), Cols: s.Len()}
	for i, row := range m.Rows {
		out.Rows[i] = s.Project(row)
	}
	return out
}
