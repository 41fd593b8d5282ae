// Package eda profiles a corpus before preprocessing: per-author document
// counts, token length statistics, duplicate passages, and the set of known
// authors that every later stage's label map must stay within.
package eda
