package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ragd/internal/feedback"
)

var feedbackShow int

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Show recent feedback records",
	Long: `Show the most recent feedback records from the JSONL feedback log.

Examples:
  ragd feedback --show 20`,
	RunE: runFeedback,
}

func init() {
	feedbackCmd.Flags().IntVar(&feedbackShow, "show", 10, "number of records to show")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	records, err := feedback.NewLogger(cfg.Feedback.Path).ReadLast(feedbackShow)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("no feedback records in %s\n", cfg.Feedback.Path)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}
