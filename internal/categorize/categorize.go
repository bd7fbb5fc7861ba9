// Package categorize plans a batch by splitting discovered documents into
// new, retry, and duplicate buckets against a registry snapshot.
package categorize

import (
	"log/slog"

	"folio/internal/document"
	"folio/internal/logging"
	"folio/internal/registry"
)

// Match pairs a document with the registry entry it resolved to.
type Match struct {
	Document document.Document
	Entry    registry.Entry
}

// Result is the planned batch. New documents have never been seen, Retries
// previously failed or were skipped, Duplicates already have extracted content
// (directly or through a mapped alias).
type Result struct {
	New        []document.Document
	Retries    []Match
	Duplicates []Match
}

// Counts reports bucket sizes for logging and summaries.
func (r Result) Counts() (newCount, retryCount, duplicateCount int) {
	return len(r.New), len(r.Retries), len(r.Duplicates)
}

// Categorizer resolves documents against a point-in-time registry snapshot.
type Categorizer struct {
	snapshot *registry.Snapshot
	logger   *slog.Logger
}

// New builds a categorizer over the given snapshot. A nil snapshot is
// permitted: categorization fails open and every document is treated as new,
// so an unreachable registry degrades ingestion to duplicate work rather than
// dropped documents.
func New(snapshot *registry.Snapshot, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Categorizer{
		snapshot: snapshot,
		logger:   logging.NewComponentLogger(logger, "categorize"),
	}
}

// Categorize buckets every document. Documents with no derivable identity are
// treated as new; they cannot be deduplicated without an identity.
func (c *Categorizer) Categorize(docs []document.Document) Result {
	var result Result

	if c.snapshot == nil {
		c.logger.Warn("registry unavailable, treating all documents as new",
			logging.String(logging.FieldEventType, "categorize_fail_open"),
			logging.Int("document_count", len(docs)),
		)
		result.New = append(result.New, docs...)
		return result
	}

	for _, doc := range docs {
		entry, found := c.snapshot.Resolve(doc)
		if !found {
			result.New = append(result.New, doc)
			continue
		}
		switch entry.Status {
		case registry.StatusProcessed, registry.StatusMapped:
			result.Duplicates = append(result.Duplicates, Match{Document: doc, Entry: entry})
		case registry.StatusFailed, registry.StatusSkipped:
			result.Retries = append(result.Retries, Match{Document: doc, Entry: entry})
		default:
			// Entry exists but never reached a terminal status; run it again.
			result.Retries = append(result.Retries, Match{Document: doc, Entry: entry})
		}
	}
	return result
}

// Eligible returns the documents that should be scheduled this run: new
// documents plus retries, in that order.
func (r Result) Eligible() []document.Document {
	eligible := make([]document.Document, 0, len(r.New)+len(r.Retries))
	eligible = append(eligible, r.New...)
	for _, match := range r.Retries {
		eligible = append(eligible, match.Document)
	}
	return eligible
}
