// Package textnorm provides script-aware text normalization and tokenization
// shared by query parsing and candidate scoring.
//
// Normalization lowercases, folds diacritics, strips non-alphanumeric runes,
// and collapses whitespace. Tokenization additionally drops stopwords and
// short tokens with a relaxed length floor for CJK and Hangul scripts, and
// guarantees a non-empty token set by falling back to a prefix of the
// normalized string.
package textnorm
