// Package split partitions a corpus into train, validation, and test sets,
// stratified by author.
//
// A split is a pure function of the corpus contents, the seed, and the
// proportions. Each author's documents are shuffled with a generator seeded
// from (seed, author), so adding or removing an author leaves every other
// author's assignment untouched. Per-author counts use largest-remainder
// rounding and stay within one document of the exact target.
//
// TrainSet is the only input feature fitting accepts, and it can only be
// obtained from Split.Apply.
package split
