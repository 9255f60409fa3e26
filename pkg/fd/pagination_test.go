package fd

import (
	"strings"
	"testing"
)

func concatPages(pages []page) string {
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p.Content)
	}
	return sb.String()
}

func TestPaginateRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"single line no terminator",
		"line one\nline two\nline three\n",
		"line one\nline two\nline three",
		strings.Repeat("x", 50) + "\n" + strings.Repeat("y", 50),
	}
	for _, content := range cases {
		pages, _ := paginate(content, 20)
		if got := concatPages(pages); got != content {
			t.Fatalf("round trip failed for %q: got %q", content, got)
		}
	}
}

func TestPaginateEmptyContent(t *testing.T) {
	pages, totalLines := paginate("", 10)
	if totalLines != 1 {
		t.Fatalf("totalLines = %d, want 1", totalLines)
	}
	if len(pages) != 1 || pages[0].Content != "" {
		t.Fatalf("pages = %+v", pages)
	}
}

func TestPaginateTotalLinesNoTrailingNewline(t *testing.T) {
	_, totalLines := paginate("a\nb\nc", 100)
	if totalLines != 3 {
		t.Fatalf("totalLines = %d, want 3", totalLines)
	}
}

func TestPaginateTotalLinesTrailingNewline(t *testing.T) {
	_, totalLines := paginate("a\nb\nc\n", 100)
	if totalLines != 3 {
		t.Fatalf("totalLines = %d, want 3", totalLines)
	}
}

func TestPaginateAccumulatesWholeLines(t *testing.T) {
	content := "aa\nbb\ncc\ndd\n"
	pages, _ := paginate(content, 6)
	if len(pages) == 0 {
		t.Fatal("expected at least one page")
	}
	for _, p := range pages {
		if len(p.Content) > 6 {
			t.Fatalf("page content %q exceeds pageSize 6", p.Content)
		}
	}
}

func TestPaginateSplitsOversizedLine(t *testing.T) {
	longLine := strings.Repeat("z", 25)
	pages, totalLines := paginate(longLine, 10)
	if totalLines != 1 {
		t.Fatalf("totalLines = %d, want 1", totalLines)
	}
	if len(pages) < 3 {
		t.Fatalf("expected the oversized line split across >= 3 pages, got %d", len(pages))
	}
	if got := concatPages(pages); got != longLine {
		t.Fatalf("round trip failed: got %q", got)
	}
}

func TestPaginateLineRangesCoverAllLines(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive\n"
	pages, totalLines := paginate(content, 8)
	if pages[0].StartLine != 1 {
		t.Fatalf("first page StartLine = %d, want 1", pages[0].StartLine)
	}
	if pages[len(pages)-1].EndLine != totalLines {
		t.Fatalf("last page EndLine = %d, want %d", pages[len(pages)-1].EndLine, totalLines)
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].StartLine < pages[i-1].EndLine {
			t.Fatalf("page %d StartLine %d precedes previous EndLine %d", i, pages[i].StartLine, pages[i-1].EndLine)
		}
	}
}

func TestPaginateDeterministic(t *testing.T) {
	content := "alpha\nbeta\ngamma\ndelta\n"
	p1, _ := paginate(content, 9)
	p2, _ := paginate(content, 9)
	if len(p1) != len(p2) {
		t.Fatalf("non-deterministic page count: %d vs %d", len(p1), len(p2))
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("non-deterministic page %d: %+v vs %+v", i, p1[i], p2[i])
		}
	}
}
