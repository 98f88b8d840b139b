package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage tenant pipeline rules",
	Long:  "Commands for listing, importing, and exporting the rules evaluated per pipeline stage.",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's rules",
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
		stage, _ := cmd.Flags().GetString("stage")

		list, err := st.ListRules(ctx, tenantID, model.Stage(stage))
		if err != nil {
			return eris.Wrap(err, "rules list")
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No rules found.")
			return nil
		}

		formatRulesList(os.Stdout, list)
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <rules.yaml>",
	Short: "Import rules from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read rules file")
		}
		imported, err := rules.ImportYAML(data)
		if err != nil {
			return err
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		n, err := st.ImportRules(ctx, tenantID, imported)
		if err != nil {
			return eris.Wrap(err, "rules import")
		}

		fmt.Printf("Imported %d rules for tenant %s\n", n, tenantID)
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a tenant's rules as YAML",
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
		list, err := st.ListRules(ctx, tenantID, "")
		if err != nil {
			return eris.Wrap(err, "rules export")
		}

		data, err := rules.ExportYAML(list)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <rule-id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteRule(ctx, args[0]); err != nil {
			return eris.Wrap(err, "rules delete")
		}
		fmt.Printf("Deleted rule %s\n", args[0])
		return nil
	},
}

func formatRulesList(out io.Writer, list []model.PipelineRule) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTAGE\tPRIORITY\tENABLED\tMATCHES")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t--------\t-------\t-------")
	for _, r := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%d\n",
			truncateID(r.ID), r.Name, r.Stage, r.Priority, r.Enabled, r.MatchCount)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rulesCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	rulesListCmd.Flags().String("stage", "", "filter by stage (PRE_FILTER, CLASSIFY, AI_ANALYSIS)")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)
	rootCmd.AddCommand(rulesCmd)
}
