package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/store"
	"github.com/relaycrm/triage/pkg/notion"
)

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Review proposed side effects awaiting confirmation",
}

var suggestionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suggestions for a tenant",
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
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		suggestions, err := st.ListSuggestions(ctx, store.SuggestionFilter{
			TenantID: tenantID,
			Status:   model.SuggestionStatus(status),
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "suggestions list")
		}
		if len(suggestions) == 0 {
			fmt.Fprintln(os.Stderr, "No suggestions found.")
			return nil
		}

		formatSuggestionsList(os.Stdout, suggestions)
		return nil
	},
}

var suggestionsAcceptCmd = &cobra.Command{
	Use:   "accept <suggestion-id>",
	Short: "Mark a suggestion as accepted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveSuggestion(cmd, args[0], model.SuggestionAccepted)
	},
}

var suggestionsDismissCmd = &cobra.Command{
	Use:   "dismiss <suggestion-id>",
	Short: "Mark a suggestion as dismissed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveSuggestion(cmd, args[0], model.SuggestionDismissed)
	},
}

var suggestionsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Apply review board decisions from Notion to the local store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" || cfg.Notion.SuggestionDB == "" {
			return eris.New("notion token and suggestion database are required (TRIAGE_NOTION_TOKEN, TRIAGE_NOTION_SUGGESTION_DB)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		nc := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(3))
		applied := 0
		for boardStatus, local := range map[string]model.SuggestionStatus{
			"Accepted":  model.SuggestionAccepted,
			"Dismissed": model.SuggestionDismissed,
		} {
			pages, err := notion.QueryByStatus(ctx, nc, cfg.Notion.SuggestionDB, boardStatus)
			if err != nil {
				return eris.Wrap(err, "suggestions pull")
			}
			for _, page := range pages {
				id := notion.PageRecordID(page)
				if id == "" {
					continue
				}
				if err := st.UpdateSuggestionStatus(ctx, id, local); err != nil {
					zap.L().Warn("apply board decision",
						zap.String("suggestion_id", id), zap.Error(err))
					continue
				}
				if err := notion.MarkReviewed(ctx, nc, string(page.ID), "Synced"); err != nil {
					zap.L().Warn("mark review card synced",
						zap.String("page_id", string(page.ID)), zap.Error(err))
				}
				applied++
			}
		}

		fmt.Printf("Applied %d review decisions\n", applied)
		return nil
	},
}

func resolveSuggestion(cmd *cobra.Command, id string, status model.SuggestionStatus) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	if err := st.UpdateSuggestionStatus(ctx, id, status); err != nil {
		return eris.Wrapf(err, "suggestions %s", status)
	}
	fmt.Printf("Suggestion %s marked %s\n", id, status)
	return nil
}

func formatSuggestionsList(out io.Writer, suggestions []model.Suggestion) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCONTEXT\tPAYLOAD\tCONFIDENCE\tSTATUS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------\t----------\t------\t-------")
	for _, s := range suggestions {
		payload, _ := json.Marshal(s.Payload)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(s.ID), s.Context, string(payload),
			s.Confidence, s.Status, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func init() {
	suggestionsCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	suggestionsListCmd.Flags().String("status", "", "filter by status (PENDING, AUTO_APPROVED, ACCEPTED, DISMISSED)")
	suggestionsListCmd.Flags().Int("limit", 50, "maximum rows to return")
	suggestionsCmd.AddCommand(suggestionsListCmd)
	suggestionsCmd.AddCommand(suggestionsAcceptCmd)
	suggestionsCmd.AddCommand(suggestionsDismissCmd)
	suggestionsCmd.AddCommand(suggestionsPullCmd)
	rootCmd.AddCommand(suggestionsCmd)
}
