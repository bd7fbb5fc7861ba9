package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"folio/internal/config"
	"folio/internal/document"
	"folio/internal/extraction"
	"folio/internal/logging"
	"folio/internal/services"
)

// Processor executes one document end to end: staging the payload and running
// the extraction chain. A returned error means the job did not reach a
// disposition; the scheduler retries it when the error is transient.
type Processor interface {
	Process(ctx context.Context, doc document.Document) (extraction.Outcome, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, doc document.Document) (extraction.Outcome, error)

// Process calls the wrapped function.
func (f ProcessorFunc) Process(ctx context.Context, doc document.Document) (extraction.Outcome, error) {
	return f(ctx, doc)
}

// Recorder receives each terminal job result, typically to persist registry
// and ledger state. Recorder errors are logged, never propagated: one
// document's bookkeeping failure must not fail the batch.
type Recorder interface {
	Record(ctx context.Context, result JobResult) error
}

// JobResult is the terminal state of one scheduled document.
type JobResult struct {
	JobID       string
	IdentityKey string
	Document    document.Document
	Outcome     extraction.Outcome
	Attempts    int
	// Err is set when the job never reached a disposition: retries
	// exhausted, a permanent failure, or cancellation.
	Err error
}

// Canceled reports whether the job was abandoned due to batch cancellation.
func (r JobResult) Canceled() bool {
	return r.Err != nil && errors.Is(r.Err, context.Canceled)
}

// Summary aggregates a full batch run.
type Summary struct {
	RunID      string
	Submitted  int
	Succeeded  int
	Degraded   int
	Failed     int
	Canceled   int
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []JobResult
}

// Scheduler runs document jobs on a bounded worker pool. A bounded queue
// provides backpressure between dispatch and the workers, a shared token
// bucket throttles all attempts across workers, and transient failures retry
// with capped exponential backoff and jitter.
type Scheduler struct {
	cfg       config.Pipeline
	processor Processor
	recorder  Recorder
	limiter   *rate.Limiter
	logger    *slog.Logger
	sleeper   func(time.Duration)
}

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithSleeper overrides how retry backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *Scheduler) {
		s.sleeper = sleeper
	}
}

// WithLimiter overrides the shared rate limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(s *Scheduler) {
		if limiter != nil {
			s.limiter = limiter
		}
	}
}

// NewScheduler builds a scheduler from pipeline configuration. The recorder
// may be nil when no persistence is wanted.
func NewScheduler(cfg config.Pipeline, processor Processor, recorder Recorder, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		cfg:       cfg,
		processor: processor,
		recorder:  recorder,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type job struct {
	doc document.Document
}

// Run schedules every document and blocks until all reach a terminal state or
// the context is canceled. Cancellation stops dispatching queued documents and
// lets in-flight jobs finish their current attempt; undispatched documents are
// reported as canceled. Run always returns a complete summary covering every
// submitted document.
func (s *Scheduler) Run(ctx context.Context, runID string, docs []document.Document) Summary {
	summary := Summary{
		RunID:     runID,
		Submitted: len(docs),
		StartedAt: time.Now().UTC(),
	}
	if len(docs) == 0 {
		summary.FinishedAt = summary.StartedAt
		return summary
	}

	ctx = services.WithRunID(ctx, runID)

	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueCapacity := s.cfg.QueueCapacity
	if queueCapacity < 1 {
		queueCapacity = 1
	}

	jobs := make(chan job, queueCapacity)
	results := make(chan JobResult, len(docs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- s.execute(ctx, j.doc)
			}
		}()
	}

	// Dispatch blocks when the queue is full; that blocking is the
	// backpressure bound between discovery and the workers.
	go func() {
		defer close(jobs)
		for _, doc := range docs {
			select {
			case <-ctx.Done():
				results <- JobResult{
					JobID:       uuid.NewString(),
					IdentityKey: doc.IdentityKey(),
					Document:    doc,
					Err:         services.Wrap(context.Canceled, "pipeline", "dispatch", "batch canceled before start", nil),
				}
			case jobs <- job{doc: doc}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		s.record(result)
		summary.tally(result)
		summary.Results = append(summary.Results, result)
	}

	summary.FinishedAt = time.Now().UTC()
	s.logger.Info("batch finished",
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldEventType, "batch_summary"),
		logging.Int("submitted", summary.Submitted),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("degraded", summary.Degraded),
		logging.Int("failed", summary.Failed),
		logging.Int("canceled", summary.Canceled),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary
}

func (s *Scheduler) execute(ctx context.Context, doc document.Document) JobResult {
	result := JobResult{
		JobID:       uuid.NewString(),
		IdentityKey: doc.IdentityKey(),
		Document:    doc,
	}

	jobCtx := services.WithJobID(ctx, result.JobID)
	jobCtx = services.WithIdentity(jobCtx, result.IdentityKey)

	maxAttempts := s.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := s.limiter.Wait(jobCtx); err != nil {
			lastErr = err
			break
		}

		outcome, err := s.runAttempt(jobCtx, doc)
		if err == nil {
			result.Outcome = outcome
			return result
		}
		lastErr = err

		if !services.IsRetryable(err) || attempt == maxAttempts {
			break
		}

		delay := s.backoffDelay(attempt)
		s.logger.Warn("job attempt failed, retrying",
			logging.String(logging.FieldJobID, result.JobID),
			logging.String(logging.FieldIdentity, result.IdentityKey),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(err),
		)
		if err := s.sleep(jobCtx, delay); err != nil {
			lastErr = err
			break
		}
	}

	result.Err = lastErr
	return result
}

func (s *Scheduler) runAttempt(ctx context.Context, doc document.Document) (extraction.Outcome, error) {
	attemptCtx := ctx
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.JobTimeout)*time.Second)
		defer cancel()
	}
	return s.processor.Process(attemptCtx, doc)
}

// backoffDelay doubles the base per prior attempt, caps at the ceiling, then
// applies jitter in [0.5, 1.0) so synchronized retries spread out.
func (s *Scheduler) backoffDelay(attempt int) time.Duration {
	base := time.Duration(s.cfg.BackoffBaseSeconds) * time.Second
	ceiling := time.Duration(s.cfg.BackoffCeilingSeconds) * time.Second
	if base <= 0 {
		return 0
	}
	if ceiling <= 0 {
		ceiling = base
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay > ceiling/2 {
			delay = ceiling
			break
		}
		delay *= 2
	}
	if delay > ceiling {
		delay = ceiling
	}
	return time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
}

func (s *Scheduler) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if s.sleeper != nil {
		s.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) record(result JobResult) {
	if s.recorder == nil {
		return
	}
	// Recording uses its own context: a canceled batch still persists the
	// results it produced.
	if err := s.recorder.Record(context.Background(), result); err != nil {
		s.logger.Warn("failed to record job result",
			logging.String(logging.FieldJobID, result.JobID),
			logging.String(logging.FieldIdentity, result.IdentityKey),
			logging.Error(err),
		)
	}
}

func (m *Summary) tally(result JobResult) {
	switch {
	case result.Canceled():
		m.Canceled++
	case result.Err != nil:
		m.Failed++
	case result.Outcome.Disposition == extraction.DispositionSuccess:
		m.Succeeded++
	case result.Outcome.Disposition == extraction.DispositionDegraded:
		m.Degraded++
	default:
		m.Failed++
	}
}
