// Package matching implements the deterministic search paths over both
// content stores: exact matching for chaptered queries, title-bucket
// grouping for chapterless browsing, and weighted scoring for interactive
// suggestion listings.
//
// All paths operate on the store-agnostic Candidate projection and resolve
// score ties by ascending id so results are stable across invocations.
package matching
