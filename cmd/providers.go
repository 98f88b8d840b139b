package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage tenant AI backend registrations",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's AI providers in fallback order",
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
		providers, err := st.ListProviders(ctx, tenantID)
		if err != nil {
			return eris.Wrap(err, "providers list")
		}
		if len(providers) == 0 {
			fmt.Fprintln(os.Stderr, "No providers registered.")
			return nil
		}

		formatProvidersList(os.Stdout, providers)
		return nil
	},
}

var providersSetCmd = &cobra.Command{
	Use:   "set <provider.json>",
	Short: "Register or update a provider from a JSON file",
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
			return eris.Wrap(err, "read provider file")
		}
		var p model.ProviderConfig
		if err := json.Unmarshal(data, &p); err != nil {
			return eris.Wrap(err, "parse provider file")
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		if p.TenantID == "" {
			p.TenantID = tenantID
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.Status == "" {
			p.Status = model.ProviderActive
		}

		if err := st.UpsertProvider(ctx, &p); err != nil {
			return eris.Wrap(err, "providers set")
		}
		fmt.Printf("Saved provider %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var providersDeleteCmd = &cobra.Command{
	Use:   "delete <provider-id>",
	Short: "Remove a provider registration",
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

		if err := st.DeleteProvider(ctx, args[0]); err != nil {
			return eris.Wrap(err, "providers delete")
		}
		fmt.Printf("Deleted provider %s\n", args[0])
		return nil
	},
}

func formatProvidersList(out io.Writer, providers []model.ProviderConfig) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tKIND\tPRIORITY\tSTATUS\tMODELS")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t--------\t------\t------")
	for _, p := range providers {
		models := ""
		for i, m := range p.Models {
			if i > 0 {
				models += ", "
			}
			models += m.Name
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(p.ID), p.Name, p.Kind, p.Priority, p.Status, models)
	}
	_ = w.Flush()
}

func init() {
	providersCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersSetCmd)
	providersCmd.AddCommand(providersDeleteCmd)
	rootCmd.AddCommand(providersCmd)
}
