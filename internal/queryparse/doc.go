// Package queryparse turns raw request text into a structured query carrying
// title, season, chapter or chapter range, priority, and leftover free text.
//
// Pipe-delimited input ("Naruto | cap 5 | high") is segment-classified; bare
// input ("Naruto cap 5") is pattern-stripped. Both modes share the same
// season and chapter grammars, tuned to Spanish chapter vocabulary with the
// common English forms included.
package queryparse
