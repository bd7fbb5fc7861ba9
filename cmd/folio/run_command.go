package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"folio/internal/categorize"
	"folio/internal/discovery"
	"folio/internal/extraction"
	"folio/internal/ledger"
	"folio/internal/logging"
	"folio/internal/pipeline"
	"folio/internal/preflight"
	"folio/internal/registry"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		categories    []string
		limit         int
		skipPreflight bool
		includeDupes  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover, categorize, and extract a batch of papers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()
			out := cmd.OutOrStdout()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if !skipPreflight {
				results := preflight.RunAll(runCtx, cfg)
				renderPreflight(out, results)
				if !preflight.AllPassed(results) {
					fmt.Fprintln(out, "Some preflight checks failed; continuing anyway (use `folio preflight` to investigate).")
				}
			}

			cats := cfg.Discovery.Categories
			if len(categories) > 0 {
				cats = categories
			}

			docs, err := discovery.NewClient(cfg, logger).List(runCtx, cats)
			if err != nil {
				return fmt.Errorf("discover candidates: %w", err)
			}
			fmt.Fprintf(out, "Discovered %d candidate documents across %d categories.\n", len(docs), len(cats))

			store, err := registry.Open(cfg, logger)
			if err != nil {
				return fmt.Errorf("open registry: %w", err)
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					fmt.Fprintf(out, "warning: close registry: %v\n", closeErr)
				}
			}()

			var ledgerStore *ledger.Store
			if cfg.Ledger.Enabled {
				ledgerStore, err = ledger.Open(cfg)
				if err != nil {
					return fmt.Errorf("open ledger: %w", err)
				}
				defer ledgerStore.Close()
			}

			plan := categorize.New(store.Snapshot(), logger).Categorize(docs)
			newCount, retryCount, duplicateCount := plan.Counts()
			fmt.Fprintf(out, "Batch plan: %d new, %d retries, %d duplicates.\n", newCount, retryCount, duplicateCount)

			// Duplicates matched through a fuzzy title get an alias entry so
			// future runs resolve them by exact key.
			for _, match := range plan.Duplicates {
				key := match.Document.IdentityKey()
				if key == "" || key == match.Entry.Key {
					continue
				}
				canonical := match.Entry.Key
				if match.Entry.Status == registry.StatusMapped && match.Entry.MappedTo != "" {
					canonical = match.Entry.MappedTo
				}
				if aliasErr := store.MapAlias(match.Document, canonical); aliasErr != nil {
					logger.Warn("failed to record identity alias", logging.Error(aliasErr))
				}
			}

			eligible := plan.Eligible()
			if includeDupes {
				for _, match := range plan.Duplicates {
					eligible = append(eligible, match.Document)
				}
			}
			runID := uuid.NewString()
			if limit > 0 && len(eligible) > limit {
				// Documents over the limit are marked skipped so the next
				// run picks them up as retries.
				for _, doc := range eligible[limit:] {
					if skipErr := store.MarkSkipped(doc, runID, "over batch limit"); skipErr != nil {
						logger.Warn("failed to mark document skipped", logging.Error(skipErr))
					}
				}
				eligible = eligible[:limit]
			}
			if len(eligible) == 0 {
				fmt.Fprintln(out, "Nothing to do.")
				return nil
			}

			backends, err := extraction.BuildChain(cfg)
			if err != nil {
				return fmt.Errorf("build extraction chain: %w", err)
			}
			orchestrator := extraction.NewOrchestrator(backends, cfg.Extraction.MinQualityScore, logger)
			processor := pipeline.NewDocumentProcessor(cfg, orchestrator, logger)

			recorder := pipeline.NewStoreRecorder(runID, store, ledgerStore)
			scheduler := pipeline.NewScheduler(cfg.Pipeline, processor, recorder, logger)

			fmt.Fprintf(out, "Scheduling %d documents (run %s).\n", len(eligible), runID)
			summary := scheduler.Run(runCtx, runID, eligible)

			renderSummary(out, summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "Discovery categories (defaults to configured categories)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents to schedule (0 = no limit)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before the run")
	cmd.Flags().BoolVar(&includeDupes, "reprocess-duplicates", false, "Also schedule documents already processed")
	return cmd
}

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the runtime environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			renderPreflight(cmd.OutOrStdout(), results)
			if !preflight.AllPassed(results) {
				return fmt.Errorf("%d preflight checks failed", countFailed(results))
			}
			return nil
		},
	}
}

func countFailed(results []preflight.Result) int {
	failed := 0
	for _, result := range results {
		if !result.Passed {
			failed++
		}
	}
	return failed
}

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func renderPreflight(out io.Writer, results []preflight.Result) {
	colorize := shouldColorize(out)
	for _, result := range results {
		status := "FAIL"
		color := ansiRed
		if result.Passed {
			status = "OK"
			color = ansiGreen
		}
		line := fmt.Sprintf("  %-28s [%s] %s", result.Name+":", status, result.Detail)
		if colorize {
			line = color + line + ansiReset
		}
		fmt.Fprintln(out, line)
	}
}

func renderSummary(out io.Writer, summary pipeline.Summary) {
	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(out, "Run %s finished in %s.\n", summary.RunID, elapsed)

	rows := [][]string{
		{"Submitted", fmt.Sprintf("%d", summary.Submitted)},
		{"Succeeded", fmt.Sprintf("%d", summary.Succeeded)},
		{"Degraded", fmt.Sprintf("%d", summary.Degraded)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Canceled", fmt.Sprintf("%d", summary.Canceled)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Count"}, rows, 1))

	var failures [][]string
	for _, result := range summary.Results {
		if result.Err == nil {
			continue
		}
		failures = append(failures, []string{
			truncate(result.Document.Title, 48),
			fmt.Sprintf("%d", result.Attempts),
			truncate(result.Err.Error(), 64),
		})
	}
	if len(failures) > 0 {
		fmt.Fprintln(out, "Failures:")
		fmt.Fprintln(out, renderTable([]string{"Title", "Attempts", "Error"}, failures, 1))
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
