package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rigadev/pavadoc/internal/pipeline"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
)

// processCmd represents the process command.
var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Process invoice files into extracted records",
	Long: `Process one or more invoice files (PDF, PNG, JPEG, TIFF, BMP) and
print the extracted records.

PDFs with enough embedded text are read directly; everything else goes
through structure-aware OCR.

Examples:
  pavadoc process invoice.pdf
  pavadoc process scans/*.png --format text
  pavadoc process invoice.pdf --output record.json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()

		format, _ := cmd.Flags().GetString("format")
		if format != outputFormatJSON && format != outputFormatText {
			return fmt.Errorf("invalid output format: %s (must be one of: %s, %s)",
				format, outputFormatJSON, outputFormatText)
		}
		outputFile, _ := cmd.Flags().GetString("output")
		workers, _ := cmd.Flags().GetInt("workers")
		if workers == 0 {
			workers = cfg.Pipeline.Workers
		}
		recursive, _ := cmd.Flags().GetBool("recursive")

		files, err := pipeline.DiscoverInputFiles(args, recursive)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return errors.New("no processable files found")
		}

		sink := pipeline.NewMemorySink()
		proc, _, err := pipeline.NewDefaultProcessor(cfg, sink, slog.Default())
		if err != nil {
			return fmt.Errorf("building pipeline: %w", err)
		}

		docs := pipeline.NewPool(proc, workers).ProcessAll(cmd.Context(), files)
		for _, doc := range docs {
			sink.PutDocument(doc)
		}

		out := cmd.OutOrStdout()
		if outputFile != "" {
			file, err := os.Create(outputFile) //nolint:gosec // user-chosen output path
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer func() { _ = file.Close() }()
			out = file
		}

		if err := writeDocuments(out, docs, format); err != nil {
			return err
		}

		failed := 0
		for _, doc := range docs {
			if doc.State == pipeline.StateError {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(docs))
		}
		return nil
	},
}

func writeDocuments(w io.Writer, docs []*pipeline.Document, format string) error {
	if format == outputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(docs) == 1 {
			return enc.Encode(docs[0])
		}
		return enc.Encode(docs)
	}

	for _, doc := range docs {
		fmt.Fprintf(w, "%s  [%s]\n", doc.Path, doc.State)
		fmt.Fprintf(w, "  method: %s  ocr confidence: %.2f\n", doc.ContentMethod, doc.OCRConfidence)
		if doc.Record != nil {
			r := doc.Record
			fmt.Fprintf(w, "  strategy: %s  overall: %.2f\n", doc.Strategy, r.OverallConfidence)
			if r.InvoiceNumber != "" {
				fmt.Fprintf(w, "  invoice number: %s\n", r.InvoiceNumber)
			}
			if r.SupplierName != "" {
				fmt.Fprintf(w, "  supplier: %s\n", r.SupplierName)
			}
			if r.TotalAmount != nil {
				fmt.Fprintf(w, "  total: %s %s\n", r.TotalAmount.StringFixed(2), r.Currency)
			}
			if r.VATAmount != nil {
				fmt.Fprintf(w, "  vat: %s %s\n", r.VATAmount.StringFixed(2), r.Currency)
			}
			if len(r.Products) > 0 {
				fmt.Fprintf(w, "  products: %d rows\n", len(r.Products))
			}
		}
		for _, se := range doc.StageErrors {
			fmt.Fprintf(w, "  stage error [%s]: %s\n", se.Stage, se.Message)
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("format", "f", outputFormatJSON, "output format (json, text)")
	processCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	processCmd.Flags().Int("workers", 0, "parallel documents (0 uses config, then one per CPU)")
	processCmd.Flags().BoolP("recursive", "r", false, "recurse into directories")
}
