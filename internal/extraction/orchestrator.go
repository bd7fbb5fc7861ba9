package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"folio/internal/document"
	"folio/internal/logging"
	"folio/internal/quality"
	"folio/internal/services"
)

// Orchestrator drives the extraction fallback chain: backends are tried in
// priority order, each draft is quality-scored, and the chain short-circuits
// on the first draft meeting the quality floor.
type Orchestrator struct {
	backends   []Backend
	minQuality float64
	logger     *slog.Logger
}

// NewOrchestrator builds an orchestrator over the given priority-ordered
// backends. minQuality is the acceptance floor for an outright Success.
func NewOrchestrator(backends []Backend, minQuality float64, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		backends:   backends,
		minQuality: minQuality,
		logger:     logging.NewComponentLogger(logger, "extraction"),
	}
}

// Extract runs the fallback chain for one document: Success when a draft
// meets the floor, Degraded with the highest-scoring draft otherwise. Ties
// between equal scores keep the earlier backend's draft. When no backend
// produced output, the classified backend errors are joined and returned if
// retrying could help, so callers can schedule another attempt; permanent
// exhaustion stays a terminal Failed outcome.
func (o *Orchestrator) Extract(ctx context.Context, doc document.Document) (Outcome, error) {
	var (
		best        Draft
		bestScore   = -1.0
		bestName    string
		failures    []string
		attemptErrs []error
	)

	for _, backend := range o.backends {
		if ctx.Err() != nil {
			break
		}

		draft, err := o.attempt(ctx, backend, doc)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", backend.Name(), err))
			attemptErrs = append(attemptErrs, fmt.Errorf("%s: %w", backend.Name(), err))
			o.logger.Warn("backend attempt failed",
				logging.String(logging.FieldBackend, backend.Name()),
				logging.String("title", doc.Title),
				logging.Error(err),
			)
			continue
		}

		score := quality.Score(draft.Content, doc.PageCount)
		o.logger.Debug("backend draft scored",
			logging.String(logging.FieldBackend, backend.Name()),
			logging.Float64("quality_score", score),
		)

		if score >= o.minQuality {
			return Success(draft.Content, backend.Name(), score), nil
		}
		if score > bestScore {
			best = draft
			bestScore = score
			bestName = backend.Name()
		}
	}

	if bestScore >= 0 {
		reason := fmt.Sprintf("best draft scored %.2f, below floor %.2f", bestScore, o.minQuality)
		return Degraded(best.Content, bestName, bestScore, reason), nil
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, services.Wrap(err, "extraction", "chain", "interrupted before any backend produced output", nil)
	}
	if len(attemptErrs) == 0 {
		return Failed("no extraction backends configured"), nil
	}

	joined := errors.Join(attemptErrs...)
	if services.IsRetryable(joined) {
		return Outcome{}, joined
	}
	return Failed("all backends failed: " + strings.Join(failures, "; ")), nil
}

// attempt isolates a single backend invocation. A panic inside a backend is
// converted into a backend error so the chain continues with the next one.
func (o *Orchestrator) attempt(ctx context.Context, backend Backend, doc document.Document) (draft Draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, "extraction", backend.Name(), fmt.Sprintf("backend crashed: %v", r), nil)
		}
	}()
	return backend.Attempt(ctx, doc)
}
