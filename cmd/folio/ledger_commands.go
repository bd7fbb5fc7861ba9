package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain the run ledger",
	}

	ledgerCmd.AddCommand(newLedgerRecentCommand(ctx))
	ledgerCmd.AddCommand(newLedgerPruneCommand(ctx))

	return ledgerCmd
}

func newLedgerRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the most recent job outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.RecordedAt.Format(time.RFC3339),
					truncate(record.Title, 40),
					record.Disposition,
					record.Backend,
					fmt.Sprintf("%.2f", record.QualityScore),
					fmt.Sprintf("%d", record.Attempts),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Recorded", "Title", "Disposition", "Backend", "Quality", "Attempts"},
				rows, 4, 5,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of rows to show")
	return cmd
}

func newLedgerPruneCommand(ctx *commandContext) *cobra.Command {
	var retentionDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete ledger rows older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := retentionDays
			if retention <= 0 {
				retention = cfg.Ledger.RetentionDays
			}

			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d rows older than %d days.\n", removed, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Override the configured retention window")
	return cmd
}

func openLedger(ctx *commandContext) (*ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Ledger.Enabled {
		return nil, fmt.Errorf("ledger is disabled in configuration")
	}
	return ledger.Open(cfg)
}
