package categorize

import (
	"fmt"
	"testing"

	"folio/internal/document"
	"folio/internal/extraction"
	"folio/internal/registry"
	"folio/internal/testsupport"
)

func seededSnapshot(t *testing.T, processed, failed int) (*registry.Snapshot, []document.Document) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store, err := registry.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var docs []document.Document
	for i := 0; i < processed; i++ {
		doc := document.Document{DOI: fmt.Sprintf("10.1000/ok%d", i), Title: fmt.Sprintf("Processed Paper %d", i)}
		if err := store.RecordOutcome(doc, extraction.Success("ok", "textlayer", 0.9), "seed"); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
		docs = append(docs, doc)
	}
	for i := 0; i < failed; i++ {
		doc := document.Document{DOI: fmt.Sprintf("10.1000/bad%d", i), Title: fmt.Sprintf("Failed Paper %d", i)}
		if err := store.RecordOutcome(doc, extraction.Failed("all backends failed"), "seed"); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
		docs = append(docs, doc)
	}
	return store.Snapshot(), docs
}

func TestCategorizeBuckets(t *testing.T) {
	snapshot, seen := seededSnapshot(t, 3, 2)

	batch := append([]document.Document{}, seen...)
	for i := 0; i < 5; i++ {
		batch = append(batch, document.Document{
			DOI:   fmt.Sprintf("10.1000/new%d", i),
			Title: fmt.Sprintf("Unseen Paper %d", i),
		})
	}

	result := New(snapshot, nil).Categorize(batch)
	newCount, retryCount, duplicateCount := result.Counts()
	if newCount != 5 || retryCount != 2 || duplicateCount != 3 {
		t.Fatalf("counts = new %d retry %d duplicate %d, want 5/2/3", newCount, retryCount, duplicateCount)
	}

	if eligible := result.Eligible(); len(eligible) != 7 {
		t.Fatalf("eligible = %d, want 7", len(eligible))
	}
}

func TestCategorizeIdempotent(t *testing.T) {
	snapshot, seen := seededSnapshot(t, 2, 1)

	categorizer := New(snapshot, nil)
	first := categorizer.Categorize(seen)
	second := categorizer.Categorize(seen)

	fn, fr, fd := first.Counts()
	sn, sr, sd := second.Counts()
	if fn != sn || fr != sr || fd != sd {
		t.Fatalf("categorization not stable: %d/%d/%d vs %d/%d/%d", fn, fr, fd, sn, sr, sd)
	}
}

func TestCategorizeMappedAliasIsDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := registry.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	canonical := document.Document{SourceID: "2406.11111", Title: "Vector Clocks in Practice"}
	if err := store.RecordOutcome(canonical, extraction.Success("ok", "textlayer", 0.9), "seed"); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	alias := document.Document{DOI: "10.5555/vc", Title: "Vector Clocks in Practice"}
	if err := store.MapAlias(alias, canonical.IdentityKey()); err != nil {
		t.Fatalf("MapAlias: %v", err)
	}

	result := New(store.Snapshot(), nil).Categorize([]document.Document{alias})
	if len(result.Duplicates) != 1 {
		t.Fatalf("expected mapped alias in duplicates, got %+v", result)
	}
	if result.Duplicates[0].Entry.MappedTo != canonical.IdentityKey() {
		t.Fatalf("entry = %+v", result.Duplicates[0].Entry)
	}
}

func TestCategorizeFailsOpenWithoutSnapshot(t *testing.T) {
	docs := []document.Document{
		{DOI: "10.1000/a", Title: "Alpha"},
		{DOI: "10.1000/b", Title: "Beta"},
	}

	result := New(nil, nil).Categorize(docs)
	if len(result.New) != len(docs) || len(result.Retries) != 0 || len(result.Duplicates) != 0 {
		t.Fatalf("fail-open result = %+v", result)
	}
}

func TestCategorizeNoIdentityTreatedAsNew(t *testing.T) {
	snapshot, _ := seededSnapshot(t, 1, 0)

	result := New(snapshot, nil).Categorize([]document.Document{{}})
	if len(result.New) != 1 {
		t.Fatalf("identity-less document should be new, got %+v", result)
	}
}
