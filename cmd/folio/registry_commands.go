package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the identity registry",
	}

	registryCmd.AddCommand(newRegistryListCommand(ctx))
	registryCmd.AddCommand(newRegistryStatsCommand(ctx))
	registryCmd.AddCommand(newRegistryExportCommand(ctx))

	return registryCmd
}

func newRegistryListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registry entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := withRegistry(ctx, func(store *registry.Store) ([]registry.Entry, error) {
				return store.Entries(), nil
			})
			if err != nil {
				return err
			}

			var filter registry.Status
			if statusFilter != "" {
				parsed, ok := registry.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of %s)", statusFilter, strings.Join(statusNames(), ", "))
				}
				filter = parsed
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				if filter != "" && entry.Status != filter {
					continue
				}
				rows = append(rows, []string{
					entry.Key,
					string(entry.Status),
					truncate(entry.Title, 48),
					entry.LastSeen.Format(time.RFC3339),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Registry is empty.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Status", "Title", "Last Seen"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status ("+strings.Join(statusNames(), ", ")+")")
	return cmd
}

func newRegistryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry entry counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := withRegistry(ctx, func(store *registry.Store) (registry.Stats, error) {
				return store.Stats(), nil
			})
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Total", fmt.Sprintf("%d", stats.Total)},
				{"Processed", fmt.Sprintf("%d", stats.Processed)},
				{"Failed", fmt.Sprintf("%d", stats.Failed)},
				{"Skipped", fmt.Sprintf("%d", stats.Skipped)},
				{"Mapped", fmt.Sprintf("%d", stats.Mapped)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, 1))
			return nil
		},
	}
}

func newRegistryExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export registry entries as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := withRegistry(ctx, func(store *registry.Store) ([]registry.Entry, error) {
				return store.Entries(), nil
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal entries: %w", err)
			}
			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write JSON to a file instead of stdout")
	return cmd
}

// withRegistry opens the registry read-only-ish for a CLI query and closes it
// afterwards. The file lock still applies: inspection commands cannot run
// concurrently with an active batch.
func withRegistry[T any](ctx *commandContext, fn func(*registry.Store) (T, error)) (T, error) {
	var zero T
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return zero, err
	}
	store, err := registry.Open(cfg, ctx.logger())
	if err != nil {
		return zero, err
	}
	defer store.Close()
	return fn(store)
}

func statusNames() []string {
	statuses := registry.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return names
}
