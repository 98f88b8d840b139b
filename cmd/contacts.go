package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/crm"
	"github.com/relaycrm/triage/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the CRM contact directory",
}

var contactsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull contacts from Salesforce into the local directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("contacts"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		client, err := initSalesforce()
		if err != nil {
			return err
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		sinceDur, _ := cmd.Flags().GetDuration("since")
		var since time.Time
		if sinceDur > 0 {
			since = time.Now().UTC().Add(-sinceDur)
		}

		res, err := crm.SyncContacts(ctx, client, st, tenantID, since)
		if err != nil {
			return eris.Wrap(err, "contacts sync")
		}

		fmt.Printf("Synced %d of %d contacts (%d skipped)\n", res.Synced, res.Fetched, res.Skipped)
		return nil
	},
}

var contactsLookupCmd = &cobra.Command{
	Use:   "lookup <email>",
	Short: "Look up a contact by sender email",
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
		dir := crm.NewStoreDirectory(st)
		contact, err := dir.Lookup(ctx, tenantID, args[0])
		if err != nil {
			return eris.Wrap(err, "contacts lookup")
		}
		if contact == nil {
			fmt.Fprintf(os.Stderr, "No contact found for %s\n", args[0])
			return nil
		}

		formatContact(os.Stdout, contact)
		return nil
	},
}

func formatContact(out io.Writer, c *model.Contact) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Email:\t%s\n", c.Email)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", c.Name)
	_, _ = fmt.Fprintf(w, "Company:\t%s\n", c.Company)
	_, _ = fmt.Fprintf(w, "Open deals:\t%d\n", c.OpenDeals)
	_, _ = fmt.Fprintf(w, "VIP:\t%t\n", c.VIP)
	_ = w.Flush()
}

func init() {
	contactsCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	contactsSyncCmd.Flags().Duration("since", 0, "only sync contacts modified within this window (0 = full sync)")
	contactsCmd.AddCommand(contactsSyncCmd)
	contactsCmd.AddCommand(contactsLookupCmd)
	rootCmd.AddCommand(contactsCmd)
}
