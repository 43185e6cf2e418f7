package phonetics

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// StripDiacritics decomposes the input and drops combining marks, so that
// "café" and "cafe" share a normalized form.
func StripDiacritics(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Levenshtein returns the edit distance between two strings, computed over
// runes so multi-byte forms are counted once per character.
func Levenshtein(a, b string) int {
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
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, minInt(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity maps edit distance into [0,1]: 1 for identical strings, 0 when
// every character differs.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// consonantClass groups consonants the way Soundex does, extended with a few
// classes that matter for cross-language comparison (laryngeals collapse with
// velars, v with f).
func consonantClass(r rune) rune {
	switch r {
	case 'b', 'f', 'p', 'v', 'w':
		return '1'
	case 'c', 'g', 'j', 'k', 'q', 's', 'x', 'z', 'h':
		return '2'
	case 'd', 't':
		return '3'
	case 'l':
		return '4'
	case 'm', 'n':
		return '5'
	case 'r':
		return '6'
	}
	return 0
}

// Code computes a Soundex-style digest of a word: leading letter plus up to
// three consonant-class digits with runs collapsed. The digest is used only
// for candidate retrieval, never for identity.
func Code(word string) string {
	cleaned := strings.ToLower(StripDiacritics(strings.TrimSpace(word)))
	var letters []rune
	for _, r := range cleaned {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteRune(unicode.ToUpper(letters[0]))
	lastClass := consonantClass(letters[0])
	for _, r := range letters[1:] {
		class := consonantClass(r)
		if class == 0 {
			// Vowels break runs but emit nothing.
			lastClass = 0
			continue
		}
		if class == lastClass {
			continue
		}
		b.WriteRune(class)
		lastClass = class
		if b.Len() >= 4 {
			break
		}
	}
	code := b.String()
	for len(code) < 4 {
		code += "0"
	}
	return code
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
