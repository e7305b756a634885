// Package match compares free-text guesses against canonical answers. The
// caller only ever learns a boolean; nothing about the canonical text or
// which alias matched leaks back out.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers, strips diacritics and punctuation, and collapses
// whitespace, so "Crème  Brûlée!" and "creme brulee" compare equal.
func Normalize(text string) string {
	folded, _, err := transform.String(foldMarks, text)
	if err != nil {
		folded = text
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Matches reports whether a guess is an acceptable rendering of the canonical
// answer or any of its aliases. Candidates are checked in order and the first
// hit wins; accepted variants form a set union, they are never scored
// individually. An empty guess never matches.
func Matches(guess, canonical string, aliases ...string) bool {
	g := Normalize(guess)
	if g == "" {
		return false
	}
	if accepts(g, canonical) {
		return true
	}
	for _, alias := range aliases {
		if accepts(g, alias) {
			return true
		}
	}
	return false
}

func accepts(normalizedGuess, candidate string) bool {
	c := Normalize(candidate)
	if c == "" {
		return false
	}
	if normalizedGuess == c {
		return true
	}
	return levenshtein(normalizedGuess, c) <= editBudget(c)
}

// editBudget scales tolerance with answer length: one edit for short
// answers, roughly a fifth of the length for longer ones.
func editBudget(canonical string) int {
	budget := len(canonical) / 5
	if budget < 1 {
		budget = 1
	}
	return budget
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
