package quality_test

import (
	"strings"
	"testing"

	"folio/internal/quality"
)

func richContent() string {
	var b strings.Builder
	b.WriteString("# Introduction\n\n")
	b.WriteString(strings.Repeat("This paragraph describes the system in detail. ", 60))
	b.WriteString("\n\n## Method\n\n")
	b.WriteString("- first observation\n- second observation\n- third observation\n\n")
	b.WriteString("| metric | value |\n| ------ | ----- |\n| recall | 0.93 |\n\n")
	b.WriteString("```\nfunc main() {}\n```\n")
	return b.String()
}

func TestScoreDeterministic(t *testing.T) {
	content := richContent()
	first := quality.Score(content, 2)
	for i := 0; i < 10; i++ {
		if got := quality.Score(content, 2); got != first {
			t.Fatalf("score not deterministic: %v vs %v", got, first)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	inputs := []struct {
		content string
		pages   int
	}{
		{"", 0},
		{"x", 1},
		{richContent(), 1},
		{strings.Repeat("dense text ", 100000), 1},
		{richContent(), 1000},
	}
	for _, in := range inputs {
		got := quality.Score(in.content, in.pages)
		if got < 0 || got > 1 {
			t.Fatalf("score out of bounds for %d-page input: %v", in.pages, got)
		}
	}
}

func TestScoreEmptyContentIsZero(t *testing.T) {
	if got := quality.Score("", 10); got != 0 {
		t.Fatalf("empty content should score 0, got %v", got)
	}
	if got := quality.Score("   \n\t  ", 10); got != 0 {
		t.Fatalf("whitespace content should score 0, got %v", got)
	}
}

func TestStructuredBeatsFlatText(t *testing.T) {
	flat := strings.Repeat("plain sentence without structure ", 200)
	structured := richContent()
	if quality.Score(structured, 2) <= quality.Score(flat, 2) {
		t.Fatal("structured content should outscore flat content of similar volume")
	}
}

func TestSparseExtractionScoresBelowFloor(t *testing.T) {
	// A few words from a long paper is the classic broken text layer result.
	got := quality.Score("garbled header", 30)
	if got >= 0.5 {
		t.Fatalf("sparse extraction should fall below the acceptance floor, got %v", got)
	}
}

func TestVolumeSaturates(t *testing.T) {
	oversize := strings.Repeat("words and more words ", 50000)
	if got := quality.Score(oversize, 1); got > 1 {
		t.Fatalf("score must clip at 1, got %v", got)
	}
}
