package matching

import (
	"github.com/melodiabl/OguriCap-Bot-sub001/internal/store"
)

// Candidate is the store-agnostic view of a matchable item. Both backing
// stores project into it so search and scoring stay uniform.
type Candidate struct {
	Source    string
	ID        int64
	Title     string
	Season    *int
	Chapter   *int
	ChapterTo *int
	Category  string
	Tags      []string
	Filename  string
	Body      string
	Location  string
	Size      int64
}

// FromLibraryItem projects a catalogued asset into a candidate.
func FromLibraryItem(item *store.LibraryItem) Candidate {
	return Candidate{
		Source:    store.SourceLibrary,
		ID:        item.ID,
		Title:     item.Title,
		Season:    item.Season,
		Chapter:   item.Chapter,
		ChapterTo: item.ChapterTo,
		Category:  item.Category,
		Tags:      item.Tags,
		Filename:  item.Filename,
		Location:  item.Location,
		Size:      item.Size,
	}
}

// FromContribution projects a user submission into a candidate.
func FromContribution(contrib *store.Contribution) Candidate {
	return Candidate{
		Source:    store.SourceContribution,
		ID:        contrib.ID,
		Title:     contrib.Title,
		Season:    contrib.Season,
		Chapter:   contrib.Chapter,
		ChapterTo: contrib.ChapterTo,
		Category:  contrib.Kind,
		Tags:      contrib.Tags,
		Filename:  contrib.Filename,
		Body:      contrib.Body,
		Location:  contrib.Location,
		Size:      contrib.Size,
	}
}

// Match pairs a candidate with its computed score.
type Match struct {
	Candidate Candidate
	Score     float64
}
