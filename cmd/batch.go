package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/relaycrm/triage/internal/model"
	"github.com/relaycrm/triage/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <items.json>",
	Short: "Reprocess a batch of content items",
	Long:  "Reads a JSON array of content items and runs the pipeline over them with bounded concurrency, persisting each result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read items file")
		}
		var items []model.ContentItem
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "parse items file")
		}
		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No items to process.")
			return nil
		}

		tenantID, _ := cmd.Flags().GetString("tenant")
		skipAI, _ := cmd.Flags().GetBool("skip-ai")
		maxItems, _ := cmd.Flags().GetInt("max-items")

		b := pipeline.NewBatch(env.pipe,
			pipeline.WithConcurrency(cfg.Batch.MaxConcurrentItems),
			pipeline.WithMaxItems(maxItems),
			pipeline.WithResultWriter(env.store),
		)
		results, err := b.Run(ctx, items, tenantID, pipeline.Options{ForceSkipAI: skipAI})
		if err != nil {
			return eris.Wrap(err, "batch run")
		}

		var spam, skipped int
		for _, r := range results {
			if r.IsSpam {
				spam++
			}
			if r.SkipAI && !r.IsSpam {
				skipped++
			}
		}
		fmt.Printf("Processed %d items: %d spam, %d skipped AI, %d analyzed\n",
			len(results), spam, skipped, len(results)-spam-skipped)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("tenant", "default", "tenant ID to process under")
	batchCmd.Flags().Bool("skip-ai", false, "terminate each item after CLASSIFY")
	batchCmd.Flags().Int("max-items", 0, "cap items processed this run (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
