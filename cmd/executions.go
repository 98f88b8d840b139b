package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/store"
)

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "Inspect AI execution logs and costs",
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
		provider, _ := cmd.Flags().GetString("provider")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		execs, err := st.ListExecutions(ctx, store.ExecutionFilter{
			TenantID:     tenantID,
			ProviderName: provider,
			Status:       model.ExecutionStatus(status),
			Limit:        limit,
		})
		if err != nil {
			return eris.Wrap(err, "executions list")
		}
		if len(execs) == 0 {
			fmt.Fprintln(os.Stderr, "No executions recorded.")
			return nil
		}

		formatExecutionsList(os.Stdout, execs)
		return nil
	},
}

func formatExecutionsList(out io.Writer, execs []model.Execution) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROVIDER\tMODEL\tTOKENS IN/OUT\tCOST\tLATENCY\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----\t-------------\t----\t-------\t------")

	var totalCost float64
	for _, e := range execs {
		totalCost += e.Cost
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t$%.4f\t%dms\t%s\n",
			truncateID(e.ID), e.ProviderName, e.ModelName,
			e.InputTokens, e.OutputTokens, e.Cost, e.LatencyMs, e.Status)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d executions, $%.4f total\n", len(execs), totalCost)
}

func init() {
	executionsCmd.Flags().String("tenant", "default", "tenant ID")
	executionsCmd.Flags().String("provider", "", "filter by provider name")
	executionsCmd.Flags().String("status", "", "filter by status (SUCCESS, FAILED)")
	executionsCmd.Flags().Int("limit", 50, "maximum rows to return")
	rootCmd.AddCommand(executionsCmd)
}
