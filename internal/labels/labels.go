// Package labels maps author names to stable integer class ids.
package labels

import (
	"fmt"
	"slices"

	"authorship/internal/failure"
)

// Map is a bijection between author names and class ids 0..n-1. Ids follow
// ascending name order and are fixed once the map is built.
type Map struct {
	names []string
	ids   map[string]int
}

// New builds a map from the known author set.
func New(authors []string) (*Map, error) {
	names := slices.Clone(authors)
	slices.Sort(names)
	names = slices.Compact(names)
	if len(names) == 0 {
		return nil, failure.Wrap(failure.ErrInsufficientData, "labels", "build", "no authors in corpus", nil)
	}
	m := &Map{names: names, ids: make(map[string]int, len(names))}
	for i, name := range names {
		if name == "" {
			return nil, failure.Wrap(failure.ErrInsufficientData, "labels", "build", "empty author name", nil)
		}
		m.ids[name] = i
	}
	return m, nil
}

// Len returns the number of classes.
func (m *Map) Len() int { return len(m.names) }

// ID returns the class id of author.
func (m *Map) ID(author string) (int, bool) {
	id, ok := m.ids[author]
	return id, ok
}

// Name returns the author for a class id.
func (m *Map) Name(id int) (string, bool) {
	if id < 0 || id >= len(m.names) {
		return "", false
	}
	return m.names[id], true
}

// Names returns the authors in class id order.
func (m *Map) Names() []string { return slices.Clone(m.names) }

// Encode maps authors to class ids, failing on any author outside the map.
func (m *Map) Encode(authors []string) ([]int, error) {
	out := make([]int, len(authors))
	for i, a := range authors {
		id, ok := m.ids[a]
		if !ok {
			return nil, failure.Wrap(failure.ErrContractMismatch, "labels", "encode", fmt.Sprintf("author %q is not in the label map", a), nil)
		}
		out[i] = id
	}
	return out, nil
}

// Payload is the persisted label-bijection.
type Payload struct {
	Authors []string `json:"authors"`
}

// Payload returns the persisted form.
func (m *Map) Payload() Payload { return Payload{Authors: m.Names()} }

// FromPayload restores a map, requiring the stored order to be canonical.
func FromPayload(p Payload) (*Map, error) {
	m, err := New(p.Authors)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(m.names, p.Authors) {
		return nil, failure.Wrap(failure.ErrContractMismatch, "labels", "restore", "stored label map is not in canonical order", nil)
	}
	return m, nil
}
