package queryparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

// Priority levels accepted by the parser. Spanish synonyms map onto the
// canonical English literals stored on the request.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var prioritySynonyms = map[string]string{
	"high":   PriorityHigh,
	"medium": PriorityMedium,
	"low":    PriorityLow,
	"alta":   PriorityHigh,
	"media":  PriorityMedium,
	"baja":   PriorityLow,
}

// Query is the structured form of a free-text content request.
type Query struct {
	Title       string
	Season      *int
	ChapterFrom *int
	ChapterTo   *int
	IsRange     bool
	Priority    string
	Extra       string
}

// HasChapter reports whether the query carries a chapter or chapter range.
func (q *Query) HasChapter() bool {
	return q != nil && q.ChapterFrom != nil
}

var (
	seasonPattern = regexp.MustCompile(`(?i)\b(?:temporada|temp|season)\s*(\d{1,2})\b`)
	// Chapter word followed by a single number or a range (separators: "-",
	// en dash, "a", "to").
	chapterPattern = regexp.MustCompile(`(?i)\b(?:cap(?:itulo)?s?|cap[ií]tulos?|chapters?|ep(?:isodios?)?|tomos?|vol(?:umen)?)\.?\s*(\d{1,4})(?:\s*(?:-|–|\b(?:a|to)\b)\s*(\d{1,4}))?`)
	// Pipe-mode segments may omit the chapter word entirely.
	bareRangePattern = regexp.MustCompile(`^(\d{1,4})(?:\s*(?:-|–|\b(?:a|to)\b)\s*(\d{1,4}))?$`)
)

// Parse turns raw request text into a structured query.
//
// Two modes are supported. Pipe-delimited input treats the first segment as
// the title and classifies each later segment as priority, season, chapter or
// range, or free-text remainder, in that order. Bare input applies the season
// and chapter patterns to the whole string and strips the matched spans from
// the title. Chapter ranges are normalized ascending. An empty title after
// stripping is a validation error.
func Parse(raw string) (*Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, services.Wrap(services.ErrValidation, "queryparse", "parse", "empty request text", nil)
	}

	var q *Query
	if strings.Contains(raw, "|") {
		q = parsePiped(raw)
	} else {
		q = parseBare(raw)
	}

	normalizeRange(q)

	if strings.TrimSpace(q.Title) == "" {
		return nil, services.Wrap(services.ErrValidation, "queryparse", "parse", "request text has no title", nil)
	}
	q.Title = strings.TrimSpace(q.Title)
	return q, nil
}

func parsePiped(raw string) *Query {
	segments := strings.Split(raw, "|")
	q := &Query{Title: strings.TrimSpace(segments[0])}

	var extra []string
	for _, segment := range segments[1:] {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if priority, ok := prioritySynonyms[strings.ToLower(segment)]; ok && q.Priority == "" {
			q.Priority = priority
			continue
		}
		if season, ok := matchSeason(segment); ok && q.Season == nil {
			q.Season = season
			continue
		}
		if from, to, ok := matchChapter(segment); ok && q.ChapterFrom == nil {
			q.ChapterFrom, q.ChapterTo = from, to
			continue
		}
		extra = append(extra, segment)
	}
	q.Extra = strings.Join(extra, " ")
	return q
}

func parseBare(raw string) *Query {
	q := &Query{}
	title := raw

	if loc := seasonPattern.FindStringSubmatchIndex(title); loc != nil {
		season, _ := strconv.Atoi(title[loc[2]:loc[3]])
		q.Season = &season
		title = title[:loc[0]] + title[loc[1]:]
	}
	if loc := chapterPattern.FindStringSubmatchIndex(title); loc != nil {
		from, _ := strconv.Atoi(title[loc[2]:loc[3]])
		q.ChapterFrom = &from
		if loc[4] >= 0 {
			to, _ := strconv.Atoi(title[loc[4]:loc[5]])
			q.ChapterTo = &to
		}
		title = title[:loc[0]] + title[loc[1]:]
	}

	q.Title = strings.Join(strings.Fields(title), " ")
	return q
}

func matchSeason(segment string) (*int, bool) {
	match := seasonPattern.FindStringSubmatch(segment)
	if match == nil {
		return nil, false
	}
	season, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, false
	}
	return &season, true
}

func matchChapter(segment string) (from, to *int, ok bool) {
	match := chapterPattern.FindStringSubmatch(segment)
	if match == nil {
		match = bareRangePattern.FindStringSubmatch(segment)
	}
	if match == nil {
		return nil, nil, false
	}
	f, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, nil, false
	}
	from = &f
	if match[2] != "" {
		t, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

func normalizeRange(q *Query) {
	if q.ChapterFrom != nil && q.ChapterTo != nil {
		if *q.ChapterTo < *q.ChapterFrom {
			q.ChapterFrom, q.ChapterTo = q.ChapterTo, q.ChapterFrom
		}
		q.IsRange = *q.ChapterFrom != *q.ChapterTo
		if !q.IsRange {
			q.ChapterTo = nil
		}
	}
}
