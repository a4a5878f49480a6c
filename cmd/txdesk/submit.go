package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/transaction-desk/internal/observability"
	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/schemas"
	"github.com/jonathan/transaction-desk/internal/types"
)

var submitRecordFile string

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one transaction record",
	Long: "Saves the record, generates its transaction sheet and delivers it " +
		"through every configured channel, then prints the outcome.",
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitRecordFile, "record", "r", "", "Path to TransactionRecord JSON file (required)")
	_ = submitCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(submitCmd)
}

// loadRecord validates path against the record schema and decodes it.
func loadRecord(path string) (types.TransactionRecord, error) {
	var rec types.TransactionRecord
	if err := schemas.ValidateFile(schemas.TransactionRecord, path); err != nil {
		return rec, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("failed to read record file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse record JSON: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("invalid record: %w", err)
	}
	return rec, nil
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	rec, err := loadRecord(submitRecordFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	comps, err := buildComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if verbose {
		printer.PrintRecord(rec)
	}

	var last progress.Snapshot
	attempt, submitErr := comps.orchestrator.Submit(cmd.Context(), rec, func(snap progress.Snapshot) {
		last = snap
		if verbose {
			printer.PrintSteps(snap)
		}
	})
	if !verbose {
		printer.PrintSteps(last)
	}
	printer.PrintAttempt(attempt)

	if submitErr != nil {
		return fmt.Errorf("submission failed: %w", submitErr)
	}
	return nil
}
