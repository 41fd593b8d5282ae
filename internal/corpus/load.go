package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"authorship/internal/failure"
	"authorship/internal/textutil"
)

// Columns names the CSV header fields the loader reads. ID, Title, and
// Chapter are optional.
type Columns struct {
	ID      string
	Text    string
	Author  string
	Title   string
	Chapter string
}

// ResolvePaths expands CSV paths and doublestar patterns into a sorted,
// de-duplicated file list. A literal path that does not exist is an error; a
// pattern that matches nothing is an error too.
func ResolvePaths(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, failure.Configf("corpus.paths", "invalid glob pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, failure.Configf("corpus.paths", "%q matched no files", pattern)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				abs = m
			}
			if !seen[abs] {
				seen[abs] = true
				files = append(files, abs)
			}
		}
	}
	slices.Sort(files)
	if len(files) == 0 {
		return nil, failure.Configf("corpus.paths", "no corpus files configured")
	}
	return files, nil
}

// LoadGlob resolves patterns and loads every matched CSV file into a single
// corpus. Files are read in sorted path order.
func LoadGlob(patterns []string, cols Columns) (*Corpus, []string, error) {
	files, err := ResolvePaths(patterns)
	if err != nil {
		return nil, nil, err
	}
	var docs []Document
	for _, path := range files {
		loaded, err := loadFile(path, cols)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, loaded...)
	}
	c, err := New(docs)
	if err != nil {
		return nil, nil, err
	}
	return c, files, nil
}

// ReadCSV parses documents from r. name prefixes generated IDs when the ID
// column is not configured.
func ReadCSV(r io.Reader, name string, cols Columns) ([]Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	positions := make(map[string]int, len(header))
	for i, h := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	lookup := func(column string, required bool, key string) (int, error) {
		if column == "" {
			return -1, nil
		}
		idx, ok := positions[column]
		if !ok && required {
			return -1, failure.Configf(key, "column %q not found in %s", column, name)
		}
		if !ok {
			return -1, nil
		}
		return idx, nil
	}
	textIdx, err := lookup(cols.Text, true, "corpus.text_column")
	if err != nil {
		return nil, err
	}
	authorIdx, err := lookup(cols.Author, true, "corpus.author_column")
	if err != nil {
		return nil, err
	}
	idIdx, err := lookup(cols.ID, true, "corpus.id_column")
	if err != nil {
		return nil, err
	}
	titleIdx, _ := lookup(cols.Title, false, "")
	chapterIdx, _ := lookup(cols.Chapter, false, "")

	prefix := textutil.SanitizeToken(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	var docs []Document
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", name, row, err)
		}
		field := func(idx int) string {
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return record[idx]
		}
		id := strings.TrimSpace(field(idIdx))
		if idIdx < 0 {
			id = fmt.Sprintf("%s-%06d", prefix, row)
		}
		doc := Document{
			ID:     id,
			Raw:    field(textIdx),
			Author: strings.TrimSpace(field(authorIdx)),
		}
		source := map[string]string{"file": filepath.Base(name)}
		if v := strings.TrimSpace(field(titleIdx)); v != "" {
			source["title"] = v
		}
		if v := strings.TrimSpace(field(chapterIdx)); v != "" {
			source["chapter"] = v
		}
		doc.Source = source
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadFile(path string, cols Columns) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, path, cols)
}
