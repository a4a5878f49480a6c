package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/config"
	"github.com/jonathan/transaction-desk/internal/logging"
	"github.com/jonathan/transaction-desk/internal/mapping"
	"github.com/jonathan/transaction-desk/internal/observability"
	"github.com/jonathan/transaction-desk/internal/rendering"
)

var (
	renderRecordFile   string
	renderTemplateFile string
	renderOutputFile   string
	renderRegularFont  string
	renderBoldFont     string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a transaction sheet locally",
	Long:  "Maps a TransactionRecord onto the PDF template and writes the composed document, without saving or delivering it.",
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderRecordFile, "record", "r", "", "Path to TransactionRecord JSON file (required)")
	renderCmd.Flags().StringVarP(&renderTemplateFile, "template", "t", "", "Path to the PDF template (required)")
	renderCmd.Flags().StringVarP(&renderOutputFile, "out", "o", "", "Path to the output PDF (required)")
	renderCmd.Flags().StringVar(&renderRegularFont, "font-regular", "", "Optional TrueType font for regular text")
	renderCmd.Flags().StringVar(&renderBoldFont, "font-bold", "", "Optional TrueType font for bold text")

	_ = renderCmd.MarkFlagRequired("record")
	_ = renderCmd.MarkFlagRequired("template")
	_ = renderCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	rec, err := loadRecord(renderRecordFile)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = logging.New(logging.Config{Environment: "development"}); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if verbose {
		printer.PrintRecord(rec)
		printer.PrintInstructions(mapping.Map(rec))
	}

	gen, err := newLocalGenerator(renderTemplateFile, renderRegularFont, renderBoldFont, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.DefaultRenderTimeout*time.Second)
	defer cancel()

	doc, err := gen.Generate(ctx, rec)
	if err != nil {
		return err
	}
	pages, err := rendering.PageCount(doc)
	if err != nil {
		return err
	}

	if err := os.WriteFile(renderOutputFile, doc, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %d bytes)\n", renderOutputFile, pages, len(doc))
	return nil
}
