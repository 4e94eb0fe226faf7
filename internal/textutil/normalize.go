package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize folds text into a canonical comparable form: NFC composition,
// full-width characters narrowed, lowercased, and whitespace collapsed. OCR
// output from video frames frequently arrives full-width and mixed-case;
// transcripts do not, so both sides go through this before comparison.
func Normalize(text string) string {
	folded := width.Narrow.String(norm.NFC.String(text))
	lowered := strings.ToLower(folded)
	return strings.Join(strings.Fields(lowered), " ")
}

// Tokenize splits normalized text into tokens. Runs of letters and digits
// form a token; everything else separates. Single-rune Latin tokens are
// dropped as noise while single Hangul or Han syllables are kept because
// Korean product mentions are often that short.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	var (
		tokens  []string
		current []rune
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		token := string(current)
		current = current[:0]
		if keepToken(token) {
			tokens = append(tokens, token)
		}
	}
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func keepToken(token string) bool {
	runes := []rune(token)
	if len(runes) >= 2 {
		return true
	}
	if len(runes) == 0 {
		return false
	}
	return unicode.Is(unicode.Hangul, runes[0]) || unicode.Is(unicode.Han, runes[0])
}
