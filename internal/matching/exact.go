package matching

import (
	"sort"
	"strings"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/queryparse"
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/textnorm"
)

const (
	exactTitleScore     = 100
	containedTitleScore = 82
	seasonBonus         = 4
)

// ExactMatches filters candidates down to those satisfying the query's
// title, season, and chapter constraints, scored for ordering. The query
// must carry a chapter; callers route chapterless queries to TitleBuckets.
func ExactMatches(q *queryparse.Query, candidates []Candidate) []Match {
	queryTitle := textnorm.Normalize(q.Title)
	if queryTitle == "" {
		return nil
	}

	var out []Match
	for _, candidate := range candidates {
		title := textnorm.Normalize(candidate.Title)
		if title == "" {
			continue
		}
		equal := title == queryTitle
		if !equal && !mutualContains(title, queryTitle) {
			continue
		}
		if q.Season != nil && !seasonMatches(q.Season, candidate.Season) {
			continue
		}
		if !chapterSatisfies(q, candidate) {
			continue
		}

		score := float64(containedTitleScore)
		if equal {
			score = exactTitleScore
		}
		if q.Season != nil && seasonMatches(q.Season, candidate.Season) {
			score += seasonBonus
		}
		out = append(out, Match{Candidate: candidate, Score: score})
	}

	sortMatches(out)
	return out
}

func mutualContains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func seasonMatches(want, have *int) bool {
	return want != nil && have != nil && *want == *have
}

// chapterSatisfies checks the requested chapter or range against the
// candidate's declared chapter or range: a single candidate chapter must
// fall inside the query range, and a candidate range must fully cover it.
func chapterSatisfies(q *queryparse.Query, candidate Candidate) bool {
	if q.ChapterFrom == nil {
		return true
	}
	if candidate.Chapter == nil {
		return false
	}

	qFrom := *q.ChapterFrom
	qTo := qFrom
	if q.ChapterTo != nil {
		qTo = *q.ChapterTo
	}

	cFrom := *candidate.Chapter
	if candidate.ChapterTo != nil {
		cTo := *candidate.ChapterTo
		return cFrom <= qFrom && cTo >= qTo
	}
	return cFrom >= qFrom && cFrom <= qTo
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Candidate.ID < matches[j].Candidate.ID
	})
}
