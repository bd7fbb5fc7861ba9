package registry

import (
	"folio/internal/document"
	"folio/internal/textutil"
)

// Snapshot is an immutable point-in-time view of the registry. Batch planning
// resolves every document against a single snapshot so that concurrent writes
// during the batch cannot change categorization mid-flight.
type Snapshot struct {
	entries       map[string]*Entry
	fingerprints  map[string]*textutil.Fingerprint
	titleMinScore float64
}

// Snapshot copies the current registry state into a read-only view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		entries:       make(map[string]*Entry, len(s.entries)),
		fingerprints:  make(map[string]*textutil.Fingerprint, len(s.fingerprints)),
		titleMinScore: s.titleMinScore,
	}
	for key, entry := range s.entries {
		cloned := entry.clone()
		snap.entries[key] = &cloned
	}
	// Fingerprints are never mutated after construction, so sharing the
	// pointers is safe.
	for key, fp := range s.fingerprints {
		snap.fingerprints[key] = fp
	}
	return snap
}

// Resolve finds the entry for a document using the same resolution order as
// the live store.
func (s *Snapshot) Resolve(doc document.Document) (Entry, bool) {
	return resolve(doc, s.entries, s.fingerprints, s.titleMinScore)
}

// Len reports the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
