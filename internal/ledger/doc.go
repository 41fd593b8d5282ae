// Package ledger records pipeline run history in SQLite: one row per run,
// the outcome of each stage, the artifacts each stage produced or loaded,
// and headline evaluation metrics.
//
// The ledger is bookkeeping only. Cached artifacts are resolved by
// fingerprint through the artifact store; nothing here is consulted to decide
// whether a stage recomputes.
package ledger
