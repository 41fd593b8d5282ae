package testsupport

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"authorship/internal/corpus"
)

var sharedWords = []string{"the", "and", "of", "a", "to", "in", "was", "her", "his", "that"}

var signatureStems = []string{"whale", "parlour", "moor", "harbour", "orphan", "estate", "colony", "pilgrim"}

// StyleDocuments generates perAuthor documents for each of authors authors.
// Every author draws half of each passage from a private word pool, so the
// corpus is easily separable. Output is deterministic.
func StyleDocuments(authors, perAuthor int) []corpus.Document {
	if authors > len(signatureStems) {
		authors = len(signatureStems)
	}
	rng := rand.New(rand.NewPCG(11, 17))
	var docs []corpus.Document
	for a := range authors {
		name := fmt.Sprintf("Author %c", 'A'+a)
		for i := range perAuthor {
			words := make([]string, 0, 12)
			for range 6 {
				words = append(words, fmt.Sprintf("%s%d", signatureStems[a], rng.IntN(4)))
				words = append(words, sharedWords[rng.IntN(len(sharedWords))])
			}
			text := strings.Join(words, " ")
			docs = append(docs, corpus.Document{
				ID:     fmt.Sprintf("%c-%04d", 'a'+a, i),
				Raw:    text,
				Clean:  text,
				Author: name,
				Source: map[string]string{"title": fmt.Sprintf("Volume %d", i%3+1)},
			})
		}
	}
	return docs
}

// MustCorpus builds a corpus from docs.
func MustCorpus(t testing.TB, docs []corpus.Document) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(docs)
	if err != nil {
		t.Fatalf("build corpus: %v", err)
	}
	return c
}

// WriteCorpusCSV writes docs as an id,text,author,title CSV file.
func WriteCorpusCSV(t testing.TB, path string, docs []corpus.Document) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "text", "author", "title"}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for _, d := range docs {
		text := d.Raw
		if text == "" {
			text = d.Clean
		}
		if err := w.Write([]string{d.ID, text, d.Author, d.Source["title"]}); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}
