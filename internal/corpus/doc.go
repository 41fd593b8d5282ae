// Package corpus holds the document model and loads the cleaned tabular
// corpus produced by the upstream ingestion process.
//
// Documents are immutable values. A Corpus keeps them in input order but
// every derived computation (hashing, splitting, fitting) iterates in sorted
// ID order, so reordering rows in the CSV never changes a result.
package corpus
