package matching

import (
	"sort"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/textnorm"
)

const (
	bucketEqualScore     = 60
	bucketContainsScore  = 35
	bucketSeasonBonus    = 2
	bucketSeasonBonusCap = 10
)

// Bucket aggregates same-title candidates for chapterless browsing.
type Bucket struct {
	Title      string
	Normalized string
	Seasons    []int
	Chapters   []int
	Candidates []Candidate
	Score      float64
}

// TitleBuckets groups candidates by normalized title and ranks the buckets
// against the query title. Buckets whose title neither equals nor mutually
// contains the query are dropped.
func TitleBuckets(queryTitle string, candidates []Candidate) []Bucket {
	normalizedQuery := textnorm.Normalize(queryTitle)
	if normalizedQuery == "" {
		return nil
	}

	index := make(map[string]*Bucket)
	var order []string
	for _, candidate := range candidates {
		normalized := textnorm.Normalize(candidate.Title)
		if normalized == "" {
			continue
		}
		equal := normalized == normalizedQuery
		if !equal && !mutualContains(normalized, normalizedQuery) {
			continue
		}
		bucket, ok := index[normalized]
		if !ok {
			bucket = &Bucket{Title: candidate.Title, Normalized: normalized}
			if equal {
				bucket.Score = bucketEqualScore
			} else {
				bucket.Score = bucketContainsScore
			}
			index[normalized] = bucket
			order = append(order, normalized)
		}
		bucket.Candidates = append(bucket.Candidates, candidate)
		if candidate.Season != nil {
			bucket.Seasons = appendDistinct(bucket.Seasons, *candidate.Season)
		}
		if candidate.Chapter != nil {
			bucket.Chapters = appendDistinct(bucket.Chapters, *candidate.Chapter)
		}
	}

	out := make([]Bucket, 0, len(index))
	for _, key := range order {
		bucket := index[key]
		bonus := len(bucket.Seasons) * bucketSeasonBonus
		if bonus > bucketSeasonBonusCap {
			bonus = bucketSeasonBonusCap
		}
		bucket.Score += float64(bonus)
		sort.Ints(bucket.Seasons)
		sort.Ints(bucket.Chapters)
		out = append(out, *bucket)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return firstID(out[i]) < firstID(out[j])
	})
	return out
}

func appendDistinct(values []int, value int) []int {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func firstID(bucket Bucket) int64 {
	lowest := int64(0)
	for i, candidate := range bucket.Candidates {
		if i == 0 || candidate.ID < lowest {
			lowest = candidate.ID
		}
	}
	return lowest
}
