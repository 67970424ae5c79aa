package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTokens         = 24
	fallbackPrefixLen = 48
	minTokenLen       = 3
	minTokenLenCJK    = 2
)

// foldDiacritics decomposes to NFD, drops combining marks, and recomposes.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text, folds diacritics, removes non-alphanumeric runes,
// and collapses runs of whitespace into single spaces.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return ""
	}
	folded, _, err := transform.String(foldDiacritics, lowered)
	if err != nil {
		folded = lowered
	}

	var builder strings.Builder
	builder.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			pendingSpace = false
			builder.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return builder.String()
}

// Tokenize normalizes text and splits it into search tokens. Tokens shorter
// than three runes (two when the token carries CJK or Hangul runes) and
// stopwords are dropped; the result is capped at 24 tokens. When nothing
// survives, the first 48 characters of the normalized string are returned as
// a single token so compact and CJK titles always yield a query.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if len(tokens) >= maxTokens {
			break
		}
		floor := minTokenLen
		if containsCJK(token) {
			floor = minTokenLenCJK
		}
		if runeLen(token) < floor {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		tokens = append(tokens, token)
	}

	if len(tokens) == 0 {
		fallback := normalized
		if runeLen(fallback) > fallbackPrefixLen {
			runesOut := []rune(fallback)
			fallback = string(runesOut[:fallbackPrefixLen])
		}
		fallback = strings.TrimSpace(fallback)
		if fallback == "" {
			return nil
		}
		return []string{fallback}
	}
	return tokens
}

// ContainsNormalized reports whether haystack contains needle after both are
// normalized. Empty needles never match.
func ContainsNormalized(haystack, needle string) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if h == "" || n == "" {
		return false
	}
	return strings.Contains(h, n)
}

func runeLen(s string) int {
	count := 0
	for range s {
		count++
	}
	return count
}

func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) ||
			unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			return true
		}
	}
	return false
}
