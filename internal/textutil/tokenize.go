package textutil

import (
	"strings"
	"unicode"
)

// Tokenize splits cleaned text into word tokens. Letters and digits form
// tokens; an apostrophe joins two word characters ("don't"). Everything else
// separates tokens.
func Tokenize(text string) []string {
	runes := []rune(text)
	tokens := make([]string, 0, len(runes)/5+1)
	start := -1
	for i, r := range runes {
		word := isWordRune(r)
		if r == '\'' && start >= 0 && i+1 < len(runes) && isWordRune(runes[i+1]) {
			word = true
		}
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			tokens = append(tokens, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, string(runes[start:]))
	}
	return tokens
}

// Terms expands tokens into the terms seen at each position: the unigram
// followed by every n-gram of length 2..maxN that starts there. N-grams join
// tokens with a single space.
func Terms(tokens []string, maxN int) []string {
	if maxN < 1 {
		maxN = 1
	}
	out := make([]string, 0, len(tokens)*maxN)
	for i := range tokens {
		out = append(out, tokens[i])
		for n := 2; n <= maxN && i+n <= len(tokens); n++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
