package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", "\"",
	"”", "\"",
	"—", " ",
	"–", " ",
)

// Normalize returns the cleaned form of a raw passage: NFKC compatibility
// composition, typographic quotes folded to ASCII, full Unicode case folding,
// and runs of whitespace collapsed to single spaces.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = quoteReplacer.Replace(text)
	text = cases.Fold().String(text)
	return CollapseSpace(text)
}

// CollapseSpace trims text and replaces whitespace runs with one space.
func CollapseSpace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// CanonicalAuthor normalizes an author label for use as a class name. Case is
// preserved; composition and spacing are not.
func CanonicalAuthor(name string) string {
	return CollapseSpace(norm.NFC.String(name))
}
