package registry

import (
	"strings"
	"time"
)

// Status is the latest projection of a document's processing history.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusMapped    Status = "mapped"
)

var allStatuses = []Status{
	StatusNew,
	StatusProcessed,
	StatusFailed,
	StatusSkipped,
	StatusMapped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// RunRecord is one processing attempt in an entry's append-only history.
type RunRecord struct {
	RunID        string    `json:"run_id"`
	Disposition  string    `json:"disposition"`
	Backend      string    `json:"backend,omitempty"`
	QualityScore float64   `json:"quality_score,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Entry tracks one resolved document identity. Entries are owned by the
// Store: callers always receive copies and mutate only through the write API.
type Entry struct {
	Key       string      `json:"key"`
	Status    Status      `json:"status"`
	Title     string      `json:"title,omitempty"`
	DOI       string      `json:"doi,omitempty"`
	SourceID  string      `json:"source_id,omitempty"`
	MappedTo  string      `json:"mapped_to,omitempty"`
	FirstSeen time.Time   `json:"first_seen"`
	LastSeen  time.Time   `json:"last_seen"`
	History   []RunRecord `json:"history,omitempty"`
}

// clone deep-copies an entry so callers cannot reach store-owned state.
func (e *Entry) clone() Entry {
	cp := *e
	if len(e.History) > 0 {
		cp.History = make([]RunRecord, len(e.History))
		copy(cp.History, e.History)
	}
	return cp
}

// Stats aggregates entry counts per status.
type Stats struct {
	Total     int
	Processed int
	Failed    int
	Skipped   int
	Mapped    int
}
