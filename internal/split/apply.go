package split

import (
	"slices"

	"authorship/internal/corpus"
)

// TrainSet is the training partition. Only Apply constructs one, which keeps
// validation and test documents out of anything that fits on training data.
type TrainSet struct {
	docs []corpus.Document
}

// Documents returns the training documents in ascending ID order.
func (t TrainSet) Documents() []corpus.Document { return slices.Clone(t.docs) }

// Len returns the number of training documents.
func (t TrainSet) Len() int { return len(t.docs) }

// Partitioned holds the documents of each partition in ascending ID order.
type Partitioned struct {
	Train      TrainSet
	Validation []corpus.Document
	Test       []corpus.Document
}

// Apply resolves the split's ID lists against c.
func (s Split) Apply(c *corpus.Corpus) (Partitioned, error) {
	if err := s.Verify(c); err != nil {
		return Partitioned{}, err
	}
	train, err := c.Select(s.Train)
	if err != nil {
		return Partitioned{}, err
	}
	validation, err := c.Select(s.Validation)
	if err != nil {
		return Partitioned{}, err
	}
	test, err := c.Select(s.Test)
	if err != nil {
		return Partitioned{}, err
	}
	return Partitioned{Train: TrainSet{docs: train}, Validation: validation, Test: test}, nil
}
