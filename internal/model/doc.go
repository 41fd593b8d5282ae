// Package model defines the training contract every classifier implements,
// the registry the training stage resolves architectures through, and the
// evaluation metrics shared by all of them.
//
// A trained Artifact records the fingerprints of the vocabulary, label map,
// and feature ranking it was fitted against. Predicting or evaluating under a
// different contract fails with failure.ErrContractMismatch instead of
// silently producing metrics over misaligned ids.
package model
