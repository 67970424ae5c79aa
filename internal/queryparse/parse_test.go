package queryparse

import (
	"errors"
	"testing"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/services"
)

func intp(v int) *int { return &v }

func TestParsePipedSegments(t *testing.T) {
	q, err := Parse("One Piece | temporada 2 | cap 10 | high | subtitulado")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Title != "One Piece" {
		t.Errorf("title = %q", q.Title)
	}
	if q.Season == nil || *q.Season != 2 {
		t.Errorf("season = %v, want 2", q.Season)
	}
	if q.ChapterFrom == nil || *q.ChapterFrom != 10 {
		t.Errorf("chapterFrom = %v, want 10", q.ChapterFrom)
	}
	if q.Priority != PriorityHigh {
		t.Errorf("priority = %q, want high", q.Priority)
	}
	if q.Extra != "subtitulado" {
		t.Errorf("extra = %q", q.Extra)
	}
}

func TestParsePipedFirstSegmentIsAlwaysTitle(t *testing.T) {
	// Even a priority literal in the first segment stays the title.
	q, err := Parse("high | low")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Title != "high" {
		t.Errorf("title = %q, want high", q.Title)
	}
	if q.Priority != PriorityLow {
		t.Errorf("priority = %q, want low", q.Priority)
	}
}

func TestParsePipedPrioritySynonyms(t *testing.T) {
	q, err := Parse("Bleach | alta")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Priority != PriorityHigh {
		t.Errorf("priority = %q, want high", q.Priority)
	}
}

func TestParseRangeNormalizedAscending(t *testing.T) {
	for _, raw := range []string{"Naruto | 5-2", "Naruto | cap 5-2", "Naruto cap 5-2"} {
		q, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if q.ChapterFrom == nil || *q.ChapterFrom != 2 {
			t.Errorf("%q: chapterFrom = %v, want 2", raw, q.ChapterFrom)
		}
		if q.ChapterTo == nil || *q.ChapterTo != 5 {
			t.Errorf("%q: chapterTo = %v, want 5", raw, q.ChapterTo)
		}
		if !q.IsRange {
			t.Errorf("%q: IsRange = false, want true", raw)
		}
	}
}

func TestParsePipedChapterSegments(t *testing.T) {
	q, err := Parse("Naruto | capitulo 7 a 9")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.ChapterFrom == nil || *q.ChapterFrom != 7 || q.ChapterTo == nil || *q.ChapterTo != 9 {
		t.Fatalf("chapters = %v-%v, want 7-9", q.ChapterFrom, q.ChapterTo)
	}

	// A segment without digits is free text, never a chapter.
	q, err = Parse("Naruto | sin numero")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.HasChapter() {
		t.Fatalf("chapterFrom = %v, want none", q.ChapterFrom)
	}
	if q.Extra != "sin numero" {
		t.Fatalf("extra = %q, want the unmatched segment", q.Extra)
	}
}

func TestParseBareStripsMatchedSpans(t *testing.T) {
	q, err := Parse("Shingeki no Kyojin temporada 3 cap 12")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Title != "Shingeki no Kyojin" {
		t.Errorf("title = %q", q.Title)
	}
	if q.Season == nil || *q.Season != 3 {
		t.Errorf("season = %v, want 3", q.Season)
	}
	if q.ChapterFrom == nil || *q.ChapterFrom != 12 {
		t.Errorf("chapterFrom = %v, want 12", q.ChapterFrom)
	}
	if q.IsRange {
		t.Error("single chapter should not be a range")
	}
}

func TestParseBareWithoutChapter(t *testing.T) {
	q, err := Parse("One Piece")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.HasChapter() {
		t.Fatal("no chapter expected")
	}
	if q.Title != "One Piece" {
		t.Errorf("title = %q", q.Title)
	}
}

func TestParseTitleConsumedIsValidationError(t *testing.T) {
	_, err := Parse("cap 10")
	if err == nil {
		t.Fatal("expected error when title is fully consumed")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := Parse("   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestParseDegenerateRangeCollapses(t *testing.T) {
	q, err := Parse("Naruto | cap 4-4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.IsRange {
		t.Fatal("4-4 should collapse to a single chapter")
	}
	if q.ChapterTo != nil {
		t.Fatalf("chapterTo = %v, want nil", q.ChapterTo)
	}
	if *q.ChapterFrom != 4 {
		t.Fatalf("chapterFrom = %d, want 4", *q.ChapterFrom)
	}
}
