package pipeline

import (
	"context"
	"errors"
	"time"

	"folio/internal/extraction"
	"folio/internal/ledger"
	"folio/internal/registry"
)

// StoreRecorder persists terminal job results into the identity registry and,
// when enabled, the run ledger.
type StoreRecorder struct {
	runID    string
	registry *registry.Store
	ledger   *ledger.Store
}

// NewStoreRecorder builds a recorder for one run. The ledger may be nil.
func NewStoreRecorder(runID string, reg *registry.Store, led *ledger.Store) *StoreRecorder {
	return &StoreRecorder{runID: runID, registry: reg, ledger: led}
}

// Record writes the registry status transition and the ledger audit row.
// Canceled jobs never ran; they leave no trace in either store.
func (r *StoreRecorder) Record(ctx context.Context, result JobResult) error {
	if result.Canceled() {
		return nil
	}

	outcome := result.Outcome
	if result.Err != nil {
		outcome = extraction.Failed(result.Err.Error())
	}

	var errs []error
	if r.registry != nil {
		if err := r.registry.RecordOutcome(result.Document, outcome, r.runID); err != nil {
			errs = append(errs, err)
		}
	}
	if r.ledger != nil {
		record := ledger.JobRecord{
			RunID:        r.runID,
			JobID:        result.JobID,
			IdentityKey:  result.IdentityKey,
			Title:        result.Document.Title,
			Disposition:  string(outcome.Disposition),
			Backend:      outcome.Backend,
			QualityScore: outcome.QualityScore,
			Attempts:     result.Attempts,
			Reason:       outcome.Reason,
			RecordedAt:   time.Now().UTC(),
		}
		if err := r.ledger.RecordJob(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
