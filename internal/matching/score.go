package matching

import (
	"strings"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/queryparse"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/textnorm"
)

const (
	overlapWeight      = 70
	titleEqualBonus    = 28
	titleContainsBonus = 14
	chapterBonus       = 30
	scoreSeasonBonus   = 18
	categoryBonus      = 10
)

// ScoreItem computes the ranked-listing score of a candidate against the
// query: token overlap carries most of the weight, with fixed bonuses for
// title equality or containment, exact chapter match, season match, and
// category match.
func ScoreItem(q *queryparse.Query, category string, candidate Candidate) float64 {
	queryTokens := textnorm.Tokenize(q.Title)
	if len(queryTokens) == 0 {
		return 0
	}

	candidateTokens := tokenSet(candidate)
	shared := 0
	for _, token := range queryTokens {
		if _, ok := candidateTokens[token]; ok {
			shared++
		}
	}
	score := overlapWeight * float64(shared) / float64(len(queryTokens))

	queryTitle := textnorm.Normalize(q.Title)
	candidateTitle := textnorm.Normalize(candidate.Title)
	switch {
	case candidateTitle != "" && candidateTitle == queryTitle:
		score += titleEqualBonus
	case candidateTitle != "" && mutualContains(candidateTitle, queryTitle):
		score += titleContainsBonus
	}

	if q.ChapterFrom != nil && candidate.Chapter != nil && !q.IsRange && *q.ChapterFrom == *candidate.Chapter {
		score += chapterBonus
	}
	if seasonMatches(q.Season, candidate.Season) {
		score += scoreSeasonBonus
	}
	// A compound candidate category like "manga seinen" still earns the
	// bonus for a request scoped to "manga".
	if textnorm.ContainsNormalized(candidate.Category, category) {
		score += categoryBonus
	}
	return score
}

// RankCandidates scores and orders candidates descending; equal scores fall
// back to ascending id so listings stay deterministic.
func RankCandidates(q *queryparse.Query, category string, candidates []Candidate) []Match {
	out := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, Match{Candidate: candidate, Score: ScoreItem(q, category, candidate)})
	}
	sortMatches(out)
	return out
}

func tokenSet(candidate Candidate) map[string]struct{} {
	parts := make([]string, 0, 4+len(candidate.Tags))
	parts = append(parts, candidate.Title, candidate.Filename, candidate.Body, candidate.Category)
	parts = append(parts, candidate.Tags...)
	tokens := textnorm.Tokenize(strings.Join(parts, " "))
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
