package corpus

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"authorship/internal/failure"
	"authorship/internal/textutil"
)

// Document is one prose passage.
type Document struct {
	ID     string            `json:"id"`
	Raw    string            `json:"raw,omitempty"`
	Clean  string            `json:"clean"`
	Author string            `json:"author"`
	Source map[string]string `json:"source,omitempty"`
}

// Corpus is an ordered collection of documents with unique IDs.
type Corpus struct {
	docs  []Document
	index map[string]int
}

// New builds a corpus, rejecting duplicate IDs and unlabeled documents.
func New(docs []Document) (*Corpus, error) {
	c := &Corpus{
		docs:  make([]Document, len(docs)),
		index: make(map[string]int, len(docs)),
	}
	copy(c.docs, docs)
	for i, doc := range c.docs {
		if strings.TrimSpace(doc.ID) == "" {
			return nil, failure.Wrap(failure.ErrUnknownDocument, "corpus", "index", fmt.Sprintf("row %d has an empty id", i+1), nil)
		}
		if strings.TrimSpace(doc.Author) == "" {
			return nil, failure.Wrap(failure.ErrUnknownDocument, "corpus", "index", fmt.Sprintf("document %q has no author label", doc.ID), nil)
		}
		if prev, dup := c.index[doc.ID]; dup {
			return nil, failure.Wrap(failure.ErrUnknownDocument, "corpus", "index",
				fmt.Sprintf("document id %q appears at rows %d and %d", doc.ID, prev+1, i+1), nil)
		}
		c.index[doc.ID] = i
	}
	return c, nil
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Documents returns the documents in input order. The slice is a copy.
func (c *Corpus) Documents() []Document {
	return slices.Clone(c.docs)
}

// Get returns the document with the given ID.
func (c *Corpus) Get(id string) (Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// IDs returns every document ID in ascending order.
func (c *Corpus) IDs() []string {
	return slices.Sorted(maps.Keys(c.index))
}

// Authors returns the known author set in ascending order.
func (c *Corpus) Authors() []string {
	set := make(map[string]struct{})
	for _, doc := range c.docs {
		set[doc.Author] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// ByAuthor groups document IDs by author. Each group is sorted.
func (c *Corpus) ByAuthor() map[string][]string {
	groups := make(map[string][]string)
	for _, doc := range c.docs {
		groups[doc.Author] = append(groups[doc.Author], doc.ID)
	}
	for _, ids := range groups {
		slices.Sort(ids)
	}
	return groups
}

// Select returns the documents for ids in the order given.
func (c *Corpus) Select(ids []string) ([]Document, error) {
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := c.Get(id)
		if !ok {
			return nil, failure.Wrap(failure.ErrUnknownDocument, "corpus", "select", fmt.Sprintf("document %q is not in the corpus", id), nil)
		}
		out = append(out, doc)
	}
	return out, nil
}

// Prepare returns a corpus with cleaned text and canonical author labels.
// Documents whose cleaned text is empty are dropped and reported by ID.
func Prepare(c *Corpus) (*Corpus, []string, error) {
	docs := make([]Document, 0, c.Len())
	var dropped []string
	for _, doc := range c.docs {
		source := doc.Raw
		if source == "" {
			source = doc.Clean
		}
		clean := textutil.Normalize(source)
		if clean == "" {
			dropped = append(dropped, doc.ID)
			continue
		}
		docs = append(docs, Document{
			ID:     doc.ID,
			Raw:    doc.Raw,
			Clean:  clean,
			Author: textutil.CanonicalAuthor(doc.Author),
			Source: doc.Source,
		})
	}
	prepared, err := New(docs)
	if err != nil {
		return nil, nil, err
	}
	return prepared, dropped, nil
}
