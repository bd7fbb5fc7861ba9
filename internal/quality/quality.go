// Package quality scores extracted document content for structural richness.
// Scores are deterministic functions of the input bytes and page count so
// results can be cached and asserted in tests.
package quality

import (
	"regexp"
	"strings"
)

// Scoring weights. The weighted sum is clipped to [0, 1].
const (
	weightVolume    = 0.4
	weightHeadings  = 0.2
	weightLists     = 0.15
	weightTables    = 0.15
	weightCodeBlock = 0.1

	// charsPerPage is the text volume expected from a fully extracted page.
	charsPerPage = 1800
)

var (
	headingPattern      = regexp.MustCompile(`(?m)^#{1,6}\s+\S|^[A-Z][A-Z0-9 .\-]{8,}$`)
	listItemPattern     = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+\S`)
	tableRowPattern     = regexp.MustCompile(`(?m)^\s*\|.+\|\s*$`)
	codeFencePattern    = regexp.MustCompile("(?m)^```")
	indentedCodePattern = regexp.MustCompile(`(?m)^(?:    |\t)\S`)
)

// Score rates extracted content in [0, 1] combining text volume relative to
// page count with the presence of structural markers. Identical inputs always
// produce identical scores.
func Score(content string, pageCount int) float64 {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0
	}

	score := weightVolume * volumeRatio(content, pageCount)
	if hasHeadings(content) {
		score += weightHeadings
	}
	if hasListItems(content) {
		score += weightLists
	}
	if hasTables(content) {
		score += weightTables
	}
	if hasCodeBlocks(content) {
		score += weightCodeBlock
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// volumeRatio compares extracted character volume to the expectation for the
// page count, capped at 1. An unknown page count assumes a single page so any
// reasonable body of text earns the full volume weight.
func volumeRatio(content string, pageCount int) float64 {
	if pageCount < 1 {
		pageCount = 1
	}
	ratio := float64(len(content)) / float64(pageCount*charsPerPage)
	if ratio > 1 {
		return 1
	}
	return ratio
}

func hasHeadings(content string) bool {
	return headingPattern.MatchString(content)
}

func hasListItems(content string) bool {
	return listItemPattern.MatchString(content)
}

func hasTables(content string) bool {
	// Two or more pipe-delimited rows distinguish a table from stray pipes.
	return len(tableRowPattern.FindAllStringIndex(content, 2)) >= 2
}

func hasCodeBlocks(content string) bool {
	if len(codeFencePattern.FindAllStringIndex(content, 2)) >= 2 {
		return true
	}
	return indentedCodePattern.MatchString(content)
}
