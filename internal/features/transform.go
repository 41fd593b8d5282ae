package features

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"authorship/internal/corpus"
	"authorship/internal/failure"
	"authorship/internal/textutil"
)

// parallelThreshold is the row count below which Transform stays on one goroutine.
const parallelThreshold = 256

// SparseVector holds the non-zero entries of one row in ascending index order.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Dot returns the inner product with a dense weight row.
func (s SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for k, i := range s.Indices {
		if i < len(dense) {
			sum += s.Values[k] * dense[i]
		}
	}
	return sum
}

// Matrix is a row-major sparse matrix with Cols columns.
type Matrix struct {
	Rows []SparseVector
	Cols int
}

// Transform vectorizes docs against v.
func Transform(docs []corpus.Document, v *Vocabulary) (Matrix, error) {
	return TransformParallel(docs, v, 0)
}

// TransformParallel vectorizes docs using up to workers goroutines (0 selects
// GOMAXPROCS). Row i always corresponds to docs[i].
func TransformParallel(docs []corpus.Document, v *Vocabulary, workers int) (Matrix, error) {
	for _, doc := range docs {
		if doc.Clean == "" {
			return Matrix{}, &failure.UnknownDocumentError{DocumentID: doc.ID}
		}
	}
	m := Matrix{Rows: make([]SparseVector, len(docs)), Cols: v.Dim()}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(docs) < parallelThreshold {
		for i, doc := range docs {
			m.Rows[i] = v.vectorize(doc.Clean)
		}
		return m, nil
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(workers, len(docs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				m.Rows[i] = v.vectorize(docs[i].Clean)
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return m, nil
}

func (v *Vocabulary) vectorize(clean string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range textutil.Terms(textutil.Tokenize(clean), v.ngramMax) {
		idx, ok := v.index[term]
		if !ok {
			idx = v.OOV()
		}
		counts[idx]++
	}
	row := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		row.Indices = append(row.Indices, idx)
	}
	sort.Ints(row.Indices)
	var norm float64
	for _, idx := range row.Indices {
		w := counts[idx]
		if v.sublinear {
			w = 1 + math.Log(w)
		}
		if v.useIDF {
			w *= v.idf[idx]
		}
		row.Values = append(row.Values, w)
		norm += w * w
	}
	if v.normalize && norm > 0 {
		norm = math.Sqrt(norm)
		for k := range row.Values {
			row.Values[k] /= norm
		}
	}
	return row
}
