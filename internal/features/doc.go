// Package features fits the vocabulary and chi-square feature ranking on the
// training partition and vectorizes documents against a fitted vocabulary.
//
// Fit accepts only a split.TrainSet. Terms are indexed in first-seen order
// over the training documents in ascending ID order, then filtered by
// document frequency and capped at the configured size. Every term outside
// the vocabulary lands in one explicit out-of-vocabulary column at index
// Len(). A Vocabulary never changes after Fit; Transform only reads it.
package features
