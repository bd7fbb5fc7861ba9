package document

import (
	"strings"

	"folio/internal/textutil"
)

// Document is a candidate research paper produced by discovery. Identifier
// fields are optional; Title is required for any document that can be
// resolved at all.
type Document struct {
	// DOI is the persistent identifier when the source exposes one.
	DOI string
	// SourceID is the identifier assigned by the discovery source
	// (e.g. an arXiv ID).
	SourceID string
	Title    string
	Authors  []string
	Abstract string
	// PageCount is reported by the source when known; zero means unknown.
	PageCount int
	// ContentURL locates the retrievable payload (typically a PDF).
	ContentURL string
	// ContentPath points at a locally staged payload, when already fetched.
	ContentPath string
}

// IdentityKey derives the registry key for a document: the normalized DOI
// first, then the source identifier, then a normalized-title key. Documents
// sharing a DOI always share a key regardless of title variation.
func (d Document) IdentityKey() string {
	if doi := NormalizeDOI(d.DOI); doi != "" {
		return "doi:" + doi
	}
	if src := strings.ToLower(strings.TrimSpace(d.SourceID)); src != "" {
		return "src:" + src
	}
	if title := TitleKey(d.Title); title != "" {
		return "title:" + title
	}
	return ""
}

// NormalizeDOI lowercases a DOI and strips resolver prefixes so the same
// identifier always yields the same string.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.TrimSpace(doi)
}

// TitleKey reduces a title to its normalized token sequence, the stable form
// used both as a fallback identity key and for fuzzy comparison.
func TitleKey(title string) string {
	return strings.Join(textutil.Tokenize(title), " ")
}
