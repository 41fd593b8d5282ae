// Package workflow runs the staged pipeline.
//
// The Manager resolves a Plan (every artifact's fingerprint, derived from the
// validated config and the corpus input digests), checks that every disabled
// stage's outputs are cached, and then walks the fixed stage order
// EDA -> Preprocessing -> FeatureEngineering -> Training -> Evaluation.
// Enabled stages recompute and persist their outputs; disabled stages load
// them. A disabled stage never falls back to computing.
//
// Runs hold the artifact store lock for their whole duration and, when a
// ledger is configured, record each stage outcome there.
package workflow
