// Package failure defines the pipeline's error taxonomy.
//
// Every fatal condition the pipeline can hit maps onto one of the exported
// sentinel markers so callers classify failures with errors.Is:
//   - ErrConfiguration for invalid proportions, thresholds, or flag values,
//     surfaced before any stage runs.
//   - ErrInsufficientData when an author cannot be stratified.
//   - ErrMissingArtifact when a skipped stage's cached output is absent.
//   - ErrEmptyVocabulary and ErrUnknownDocument from the feature engineer.
//   - ErrContractMismatch when a model is evaluated against a vocabulary or
//     label map other than the one it was trained with.
//
// Typed errors carry the named subject (author, artifact, document) and Wrap
// adds stage/operation context in the same shape everywhere. Describe renders
// the single terminal message shown to the user, including remediation.
package failure
