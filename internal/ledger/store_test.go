package ledger

import (
	"context"
	"testing"
	"time"

	"folio/internal/testsupport"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestRecordJobAndSummarize(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	records := []JobRecord{
		{RunID: "run-1", JobID: "job-1", IdentityKey: "doi:10.1000/a", Disposition: "success", Backend: "textlayer", QualityScore: 0.8, Attempts: 1},
		{RunID: "run-1", JobID: "job-2", IdentityKey: "doi:10.1000/b", Disposition: "degraded", Backend: "rawtext", QualityScore: 0.3, Attempts: 2},
		{RunID: "run-1", JobID: "job-3", IdentityKey: "doi:10.1000/c", Disposition: "failed", Reason: "all backends failed", Attempts: 3},
		{RunID: "run-2", JobID: "job-4", IdentityKey: "doi:10.1000/d", Disposition: "success", Backend: "mlservice", QualityScore: 0.9, Attempts: 1},
	}
	for _, record := range records {
		if err := store.RecordJob(ctx, record); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}

	summary, err := store.Summarize(ctx, "run-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 3 || summary.Succeeded != 1 || summary.Degraded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.FirstAt.IsZero() || summary.LastAt.Before(summary.FirstAt) {
		t.Fatalf("summary timestamps = %+v", summary)
	}
}

func TestSummarizeUnknownRunIsEmpty(t *testing.T) {
	store := openStore(t)

	summary, err := store.Summarize(context.Background(), "run-missing")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, jobID := range []string{"job-1", "job-2", "job-3"} {
		record := JobRecord{RunID: "run-1", JobID: jobID, IdentityKey: "src:" + jobID, Disposition: "success"}
		if err := store.RecordJob(ctx, record); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].JobID != "job-3" || records[1].JobID != "job-2" {
		t.Fatalf("unexpected order: %s, %s", records[0].JobID, records[1].JobID)
	}
}

func TestPruneRemovesOnlyExpiredRows(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	old := JobRecord{
		RunID: "run-old", JobID: "job-old", IdentityKey: "src:old",
		Disposition: "failed", RecordedAt: time.Now().UTC().AddDate(0, 0, -120),
	}
	fresh := JobRecord{RunID: "run-new", JobID: "job-new", IdentityKey: "src:new", Disposition: "success"}
	if err := store.RecordJob(ctx, old); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}
	if err := store.RecordJob(ctx, fresh); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	removed, err := store.Prune(ctx, 90)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].JobID != "job-new" {
		t.Fatalf("records = %+v", records)
	}
}

func TestPruneDisabledByNonPositiveRetention(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	record := JobRecord{
		RunID: "run-1", JobID: "job-1", IdentityKey: "src:a",
		Disposition: "success", RecordedAt: time.Now().UTC().AddDate(-1, 0, 0),
	}
	if err := store.RecordJob(ctx, record); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	removed, err := store.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}
