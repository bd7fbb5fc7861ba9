package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"folio/internal/config"
	"folio/internal/document"
	"folio/internal/extraction"
	"folio/internal/logging"
	"folio/internal/textutil"
)

const checkpointVersion = 1

type checkpointFile struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Entries []Entry   `json:"entries"`
}

// Store is the identity registry: a durable map from document identity to
// processing status and history. All mutation goes through the write API and
// is serialized by a single writer lock; a file lock enforces the
// single-writer discipline across processes.
type Store struct {
	path          string
	titleMinScore float64
	logger        *slog.Logger
	lock          *flock.Flock

	mu           sync.RWMutex
	entries      map[string]*Entry
	fingerprints map[string]*textutil.Fingerprint
}

// Open acquires the registry lock and loads the last checkpoint. A missing or
// unreadable checkpoint is not fatal: the registry starts empty and every
// document is treated as new.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "registry")

	path := strings.TrimSpace(cfg.Registry.Path)
	if path == "" {
		return nil, errors.New("registry path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	lock := flock.New(cfg.RegistryLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire registry lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another folio process holds the registry")
	}

	store := &Store{
		path:          path,
		titleMinScore: cfg.Registry.TitleMatchMinScore,
		logger:        logger,
		lock:          lock,
		entries:       make(map[string]*Entry),
		fingerprints:  make(map[string]*textutil.Fingerprint),
	}

	if err := store.load(); err != nil {
		logger.Warn("failed to load registry checkpoint",
			logging.String(logging.FieldEventType, "registry_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "registry starts empty; all documents treated as new"),
		)
	}

	return store, nil
}

// Close checkpoints the registry and releases the file lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	checkpointErr := s.Checkpoint()
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && checkpointErr == nil {
			checkpointErr = fmt.Errorf("release registry lock: %w", err)
		}
	}
	return checkpointErr
}

// ResolveIdentity finds the registry entry for a document: exact match on the
// persistent identifier first, then on the source identifier, then a fuzzy
// title match against existing entries. Returns a copy of the entry and true
// when found.
func (s *Store) ResolveIdentity(doc document.Document) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolve(doc, s.entries, s.fingerprints, s.titleMinScore)
}

// RecordOutcome updates an identity's status from an extraction outcome and
// appends a run-history record. An unseen identity is created on first record.
func (s *Store) RecordOutcome(doc document.Document, outcome extraction.Outcome, runID string) error {
	key := doc.IdentityKey()
	if key == "" {
		return errors.New("document has no derivable identity")
	}

	now := time.Now().UTC()
	record := RunRecord{
		RunID:        runID,
		Disposition:  string(outcome.Disposition),
		Backend:      outcome.Backend,
		QualityScore: outcome.QualityScore,
		Reason:       outcome.Reason,
		RecordedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil {
		entry = &Entry{
			Key:       key,
			Status:    StatusNew,
			Title:     strings.TrimSpace(doc.Title),
			DOI:       document.NormalizeDOI(doc.DOI),
			SourceID:  strings.TrimSpace(doc.SourceID),
			FirstSeen: now,
		}
		s.entries[key] = entry
		s.indexTitle(entry)
	}

	entry.LastSeen = now
	entry.History = append(entry.History, record)
	if outcome.Extracted() {
		entry.Status = StatusProcessed
	} else {
		entry.Status = StatusFailed
	}
	return nil
}

// MarkSkipped records that a document was deliberately not processed this run.
func (s *Store) MarkSkipped(doc document.Document, runID, reason string) error {
	key := doc.IdentityKey()
	if key == "" {
		return errors.New("document has no derivable identity")
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[key]
	if entry == nil {
		entry = &Entry{
			Key:       key,
			Title:     strings.TrimSpace(doc.Title),
			DOI:       document.NormalizeDOI(doc.DOI),
			SourceID:  strings.TrimSpace(doc.SourceID),
			FirstSeen: now,
		}
		s.entries[key] = entry
		s.indexTitle(entry)
	}
	entry.LastSeen = now
	entry.Status = StatusSkipped
	entry.History = append(entry.History, RunRecord{
		RunID:       runID,
		Disposition: string(StatusSkipped),
		Reason:      reason,
		RecordedAt:  now,
	})
	return nil
}

// MapAlias records that a document's own identity key is an alias of an
// existing canonical entry, discovered through fuzzy title matching. The alias
// entry carries status mapped and points at the canonical key.
func (s *Store) MapAlias(doc document.Document, canonicalKey string) error {
	key := doc.IdentityKey()
	if key == "" {
		return errors.New("document has no derivable identity")
	}
	if key == canonicalKey {
		return nil
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[canonicalKey]; !exists {
		return fmt.Errorf("canonical entry %q not found", canonicalKey)
	}
	entry := s.entries[key]
	if entry == nil {
		entry = &Entry{
			Key:       key,
			Title:     strings.TrimSpace(doc.Title),
			DOI:       document.NormalizeDOI(doc.DOI),
			SourceID:  strings.TrimSpace(doc.SourceID),
			FirstSeen: now,
		}
		s.entries[key] = entry
		s.indexTitle(entry)
	}
	entry.Status = StatusMapped
	entry.MappedTo = canonicalKey
	entry.LastSeen = now
	return nil
}

// Entries returns copies of all entries ordered by first-seen time.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry.clone())
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FirstSeen.Equal(entries[j].FirstSeen) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].FirstSeen.Before(entries[j].FirstSeen)
	})
	return entries
}

// Stats returns entry counts grouped by status.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.entries)}
	for _, entry := range s.entries {
		switch entry.Status {
		case StatusProcessed:
			stats.Processed++
		case StatusFailed:
			stats.Failed++
		case StatusSkipped:
			stats.Skipped++
		case StatusMapped:
			stats.Mapped++
		}
	}
	return stats
}

// Checkpoint atomically writes the registry state to disk: the full state is
// marshalled to a temporary file which is renamed over the checkpoint path, so
// a crash mid-write never corrupts the previous checkpoint.
func (s *Store) Checkpoint() error {
	s.mu.RLock()
	payload := checkpointFile{
		Version: checkpointVersion,
		SavedAt: time.Now().UTC(),
		Entries: make([]Entry, 0, len(s.entries)),
	}
	for _, entry := range s.entries {
		payload.Entries = append(payload.Entries, entry.clone())
	}
	s.mu.RUnlock()

	sort.Slice(payload.Entries, func(i, j int) bool {
		return payload.Entries[i].Key < payload.Entries[j].Key
	})

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	s.logger.Debug("registry checkpoint written",
		logging.Int("entry_count", len(payload.Entries)),
		logging.String("path", s.path),
	)
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read checkpoint: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var payload checkpointFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse checkpoint: %w", err)
	}
	if payload.Version != checkpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d", payload.Version)
	}

	for i := range payload.Entries {
		entry := payload.Entries[i]
		if strings.TrimSpace(entry.Key) == "" {
			continue
		}
		stored := entry
		s.entries[stored.Key] = &stored
		s.indexTitle(&stored)
	}

	s.logger.Debug("registry checkpoint loaded",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path),
	)
	return nil
}

// indexTitle caches the title fingerprint for fuzzy matching. Callers hold
// the writer lock.
func (s *Store) indexTitle(entry *Entry) {
	if fp := textutil.NewFingerprint(entry.Title); fp != nil {
		s.fingerprints[entry.Key] = fp
	}
}

// resolve implements the shared identity resolution used by both the live
// store and batch snapshots.
func resolve(doc document.Document, entries map[string]*Entry, fingerprints map[string]*textutil.Fingerprint, minScore float64) (Entry, bool) {
	if doi := document.NormalizeDOI(doc.DOI); doi != "" {
		if entry, ok := entries["doi:"+doi]; ok {
			return entry.clone(), true
		}
	}
	if src := strings.ToLower(strings.TrimSpace(doc.SourceID)); src != "" {
		if entry, ok := entries["src:"+src]; ok {
			return entry.clone(), true
		}
	}
	if title := document.TitleKey(doc.Title); title != "" {
		if entry, ok := entries["title:"+title]; ok {
			return entry.clone(), true
		}
	}

	candidate := textutil.NewFingerprint(doc.Title)
	if candidate == nil {
		return Entry{}, false
	}
	var (
		bestKey   string
		bestScore float64
	)
	for key, fp := range fingerprints {
		score := textutil.CosineSimilarity(candidate, fp)
		if score > bestScore || (score == bestScore && key < bestKey) {
			bestKey = key
			bestScore = score
		}
	}
	if bestKey == "" || bestScore < minScore {
		return Entry{}, false
	}
	return entries[bestKey].clone(), true
}
