package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the pipeline for a single content item",
	Long:  "Processes one item, either loaded from a JSON file (--file) or assembled from flags, and prints the resulting classification.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("process"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		tenantID, _ := cmd.Flags().GetString("tenant")
		skipAI, _ := cmd.Flags().GetBool("skip-ai")
		file, _ := cmd.Flags().GetString("file")

		item, err := loadItem(cmd, file)
		if err != nil {
			return err
		}

		result := env.pipe.Process(ctx, item, tenantID, pipeline.Options{ForceSkipAI: skipAI})
		if err := env.store.InsertResult(ctx, result); err != nil {
			return eris.Wrap(err, "persist result")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// loadItem builds the content item from a JSON file or, absent one,
// from the subject/from/body flags.
func loadItem(cmd *cobra.Command, file string) (model.ContentItem, error) {
	var item model.ContentItem
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return item, eris.Wrap(err, "read item file")
		}
		if err := json.Unmarshal(data, &item); err != nil {
			return item, eris.Wrap(err, "parse item file")
		}
	} else {
		item.From, _ = cmd.Flags().GetString("from")
		item.Subject, _ = cmd.Flags().GetString("subject")
		item.Body, _ = cmd.Flags().GetString("body")
		if item.From == "" {
			return item, eris.New("either --file or --from is required")
		}
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.ReceivedAt.IsZero() {
		item.ReceivedAt = time.Now().UTC()
	}
	return item, nil
}

func init() {
	processCmd.Flags().String("tenant", "default", "tenant ID to process under")
	processCmd.Flags().String("file", "", "JSON file with the content item")
	processCmd.Flags().String("from", "", "sender address (when no --file)")
	processCmd.Flags().String("subject", "", "subject line (when no --file)")
	processCmd.Flags().String("body", "", "body text (when no --file)")
	processCmd.Flags().Bool("skip-ai", false, "terminate after CLASSIFY without an AI call")
	rootCmd.AddCommand(processCmd)
}
