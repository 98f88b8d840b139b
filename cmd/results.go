package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List recent pipeline results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		category, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")

		results, err := st.ListResults(ctx, store.ResultFilter{
			TenantID: tenantID,
			Category: category,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "results list")
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No results found.")
			return nil
		}

		formatResultsList(os.Stdout, results)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate pipeline outcomes for a tenant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		window, _ := cmd.Flags().GetDuration("since")

		stats, err := st.Stats(ctx, tenantID, time.Now().UTC().Add(-window))
		if err != nil {
			return eris.Wrap(err, "stats")
		}

		formatStats(os.Stdout, tenantID, window, stats)
		return nil
	},
}

func formatResultsList(out io.Writer, results []model.PipelineResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ITEM\tSTAGE\tCATEGORY\tPRIORITY\tSPAM\tSKIP AI\tTIME")
	_, _ = fmt.Fprintln(w, "----\t-----\t--------\t--------\t----\t-------\t----")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\t%dms\n",
			truncateID(r.ItemID), r.Stage, r.Category, r.Priority,
			r.IsSpam, r.SkipAI, r.ProcessingTimeMs)
	}
	_ = w.Flush()
}

func formatStats(out io.Writer, tenantID string, window time.Duration, stats *model.PipelineStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Tenant:\t%s (last %s)\n", tenantID, window)
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", stats.TotalProcessed)
	_, _ = fmt.Fprintf(w, "Rejected:\t%d\n", stats.Rejected)
	_, _ = fmt.Fprintf(w, "Skipped AI:\t%d\n", stats.SkippedAI)
	_, _ = fmt.Fprintf(w, "AI analyzed:\t%d\n", stats.AIAnalyzed)
	_, _ = fmt.Fprintf(w, "Avg time:\t%.1fms\n", stats.AvgProcessingMs)
	_ = w.Flush()
}

func init() {
	resultsCmd.Flags().String("tenant", "default", "tenant ID")
	resultsCmd.Flags().String("category", "", "filter by category")
	resultsCmd.Flags().Int("limit", 50, "maximum rows to return")
	statsCmd.Flags().String("tenant", "default", "tenant ID")
	statsCmd.Flags().Duration("since", 24*time.Hour, "aggregation window")
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(statsCmd)
}
