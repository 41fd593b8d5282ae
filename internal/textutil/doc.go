// Package textutil provides the text processing shared by preprocessing,
// feature engineering, and inference.
//
// The primary use cases are:
//   - Normalizing raw passages into cleaned text (NFKC, case folding, whitespace)
//   - Splitting cleaned text into word tokens and contiguous n-grams
//   - Canonicalizing author names and sanitizing artifact path segments
//
// Tokenization keeps every token length: single-letter words such as "a" and
// "I" carry stylistic signal for attribution.
package textutil
