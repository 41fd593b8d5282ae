package split

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"authorship/internal/config"
	"authorship/internal/corpus"
	"authorship/internal/failure"
)

// Partition indexes.
const (
	Train = iota
	Validation
	Test
)

// PartitionNames lists partitions in allocation order.
var PartitionNames = [3]string{"train", "validation", "test"}

// floorEpsilon absorbs float error so a quota of 2.9999999999 floors to 3.
const floorEpsilon = 1e-9

// Split holds the three disjoint, sorted ID lists.
type Split struct {
	Seed        int64     `json:"seed"`
	Proportions []float64 `json:"proportions"`
	Train       []string  `json:"train"`
	Validation  []string  `json:"validation"`
	Test        []string  `json:"test"`
}

// New partitions c. Proportions must be a valid train/validation/test triple.
func New(c *corpus.Corpus, seed int64, proportions []float64) (Split, error) {
	if err := config.ValidateProportions(proportions); err != nil {
		return Split{}, err
	}
	groups := c.ByAuthor()
	authors := make([]string, 0, len(groups))
	for author := range groups {
		authors = append(authors, author)
	}
	sort.Strings(authors)

	out := Split{Seed: seed, Proportions: slices.Clone(proportions)}
	for _, author := range authors {
		ids := slices.Clone(groups[author])
		counts, err := Allocate(len(ids), proportions)
		if err != nil {
			return Split{}, &failure.InsufficientDataError{Author: author, Documents: len(ids), Reason: err.Error()}
		}
		rng := rand.New(rand.NewPCG(authorSeed(seed, author)))
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

		out.Train = append(out.Train, ids[:counts[Train]]...)
		out.Validation = append(out.Validation, ids[counts[Train]:counts[Train]+counts[Validation]]...)
		out.Test = append(out.Test, ids[counts[Train]+counts[Validation]:]...)
	}
	slices.Sort(out.Train)
	slices.Sort(out.Validation)
	slices.Sort(out.Test)
	return out, nil
}

// authorSeed derives an independent generator state for one author.
func authorSeed(seed int64, author string) (uint64, uint64) {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte{0})
	h.Write([]byte(author))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Allocate distributes n documents over the partitions by largest remainder.
// Leftover documents go to the largest fractional quotas, ties in partition
// order. Training always receives at least one document, and so do the
// held-out partitions combined whenever their proportions are non-zero; a
// document moved to satisfy that comes from the partition with the largest
// surplus over its quota, so every count stays within one of its target.
func Allocate(n int, p []float64) ([3]int, error) {
	var counts [3]int
	var quotas [3]float64
	assigned := 0
	for i := range counts {
		quotas[i] = float64(n) * p[i]
		counts[i] = int(math.Floor(quotas[i] + floorEpsilon))
		assigned += counts[i]
	}
	order := []int{Train, Validation, Test}
	sort.SliceStable(order, func(a, b int) bool {
		fa := quotas[order[a]] - float64(counts[order[a]])
		fb := quotas[order[b]] - float64(counts[order[b]])
		return fa > fb
	})
	for k := 0; assigned < n; k++ {
		counts[order[k%3]]++
		assigned++
	}
	for assigned > n {
		// floorEpsilon can overshoot by one when quotas sit just below integers.
		i := largestSurplus(counts, quotas, -1)
		counts[i]--
		assigned--
	}

	heldOutWanted := p[Validation]+p[Test] > 0
	if counts[Train] == 0 {
		if n < 2 {
			return counts, fmt.Errorf("needs at least 2 documents to cover train and held-out partitions")
		}
		donor := largestSurplus(counts, quotas, Train)
		counts[donor]--
		counts[Train]++
	}
	if heldOutWanted && counts[Validation]+counts[Test] == 0 {
		if counts[Train] < 2 {
			return counts, fmt.Errorf("needs at least 2 documents to cover train and held-out partitions")
		}
		receiver := Validation
		if quotas[Test] > quotas[Validation] {
			receiver = Test
		}
		counts[Train]--
		counts[receiver]++
	}
	return counts, nil
}

// largestSurplus returns the partition whose count most exceeds its quota,
// skipping exclude and empty partitions.
func largestSurplus(counts [3]int, quotas [3]float64, exclude int) int {
	best, bestSurplus := -1, math.Inf(-1)
	for i := range counts {
		if i == exclude || counts[i] == 0 {
			continue
		}
		if s := float64(counts[i]) - quotas[i]; s > bestSurplus {
			best, bestSurplus = i, s
		}
	}
	return best
}

// IDs returns the ID list of partition i.
func (s Split) IDs(i int) []string {
	switch i {
	case Train:
		return s.Train
	case Validation:
		return s.Validation
	case Test:
		return s.Test
	}
	return nil
}

// Len returns the total number of assigned documents.
func (s Split) Len() int { return len(s.Train) + len(s.Validation) + len(s.Test) }

// Verify checks that the split is a disjoint cover of c.
func (s Split) Verify(c *corpus.Corpus) error {
	seen := make(map[string]string, s.Len())
	for i := range PartitionNames {
		for _, id := range s.IDs(i) {
			if prev, dup := seen[id]; dup {
				return failure.Wrap(failure.ErrContractMismatch, "split", "verify",
					fmt.Sprintf("document %q appears in both %s and %s", id, prev, PartitionNames[i]), nil)
			}
			if _, ok := c.Get(id); !ok {
				return failure.Wrap(failure.ErrContractMismatch, "split", "verify",
					fmt.Sprintf("document %q is not in the corpus", id), nil)
			}
			seen[id] = PartitionNames[i]
		}
	}
	if len(seen) != c.Len() {
		return failure.Wrap(failure.ErrContractMismatch, "split", "verify",
			fmt.Sprintf("split covers %d of %d documents", len(seen), c.Len()), nil)
	}
	return nil
}

// Counts returns per-author document counts for each partition.
func (s Split) Counts(c *corpus.Corpus) map[string][3]int {
	out := make(map[string][3]int)
	for i := range PartitionNames {
		for _, id := range s.IDs(i) {
			doc, ok := c.Get(id)
			if !ok {
				continue
			}
			row := out[doc.Author]
			row[i]++
			out[doc.Author] = row
		}
	}
	return out
}
