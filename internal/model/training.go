package model

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// EarlyStopping tracks the best validation accuracy and signals when
// patience epochs pass without improvement. Patience 0 never stops early.
type EarlyStopping struct {
	Patience  int
	best      float64
	bestEpoch int
	wait      int
	seen      bool
}

// Observe records an epoch score and reports whether it improved on the best
// so far and whether training should stop.
func (e *EarlyStopping) Observe(epoch int, score float64) (improved, stop bool) {
	if !e.seen || score > e.best {
		e.best, e.bestEpoch, e.wait, e.seen = score, epoch, 0, true
		return true, false
	}
	e.wait++
	return false, e.Patience > 0 && e.wait >= e.Patience
}

// BestEpoch returns the epoch with the highest score.
func (e *EarlyStopping) BestEpoch() int { return e.bestEpoch }

// NewRand returns the generator an architecture uses for initialisation and
// shuffling. Streams differ per architecture but are fixed by the seed.
func NewRand(seed int64, arch Architecture) *rand.Rand {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	h.Write([]byte(arch))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))
}

// Accuracy returns the share of rows whose argmax equals the label.
func Accuracy(probs [][]float64, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i, p := range probs {
		if Argmax(p) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// MeanLoss returns the average cross-entropy of probs against y.
func MeanLoss(probs [][]float64, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for i, p := range probs {
		sum += CrossEntropy(p, y[i])
	}
	return sum / float64(len(y))
}

// MonitorScore is the value early stopping maximizes: validation accuracy,
// or the negated training loss when there is no validation data.
func MonitorScore(record Epoch, validationSize int) float64 {
	if validationSize == 0 {
		return -record.TrainLoss
	}
	return record.ValidationAccuracy
}
