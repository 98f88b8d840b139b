package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/tenantconf"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tenant pipeline configuration sections",
	Long:  "Shows the effective (merged) configuration or overrides individual sections. Valid sections: " + fmt.Sprint(tenantconf.SectionNames),
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a tenant's effective configuration",
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
		loader := tenantconf.NewLoader(st, 0)
		resolved := loader.Load(ctx, tenantID)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resolved)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <section> <json-file>",
	Short: "Override one configuration section from a JSON file",
	Args:  cobra.ExactArgs(2),
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

		data, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrap(err, "read section file")
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		loader := tenantconf.NewLoader(st, 0)
		if err := loader.SetSection(ctx, tenantID, args[0], data); err != nil {
			return err
		}

		fmt.Printf("Updated section %s for tenant %s\n", args[0], tenantID)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset <section>",
	Short: "Reset one section to the compiled-in default",
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

		tenantID, _ := cmd.Flags().GetString("tenant")
		loader := tenantconf.NewLoader(st, 0)
		if err := loader.ResetSection(ctx, tenantID, args[0]); err != nil {
			return err
		}

		fmt.Printf("Reset section %s for tenant %s\n", args[0], tenantID)
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
