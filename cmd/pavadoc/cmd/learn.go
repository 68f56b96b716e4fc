package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rigadev/pavadoc/internal/learn"
)

// correctionFile is the JSON shape consumed by the learn command.
type correctionFile struct {
	OriginalText string            `json:"original_text"`
	Predicted    map[string]string `json:"predicted,omitempty"`
	Corrections  map[string]string `json:"corrections"`
}

// learnCmd represents the learn command.
var learnCmd = &cobra.Command{
	Use:   "learn <corrections.json>",
	Short: "Learn extraction patterns from operator corrections",
	Long: `Feed an operator correction into the pattern store. The file holds
the original document text, the fields the extractor predicted, and the
corrected values:

  {
    "original_text": "...full OCR text...",
    "predicted":   {"SUPPLIER_NAME": "SIA Ozoii"},
    "corrections": {"SUPPLIER_NAME": "SIA Ozoli"}
  }

Fields whose prediction already matched the correction are skipped;
for the rest, candidate patterns are synthesized, scored against the
original text and stored when they pass the quality gate.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		data, err := os.ReadFile(args[0]) //nolint:gosec // user-chosen input path
		if err != nil {
			return fmt.Errorf("reading corrections: %w", err)
		}
		var cf correctionFile
		if err := json.Unmarshal(data, &cf); err != nil {
			return fmt.Errorf("parsing corrections: %w", err)
		}
		if len(cf.Corrections) == 0 {
			return fmt.Errorf("no corrections in %s", args[0])
		}

		store := newStore(cfg)
		learner := learn.NewLearner(store, slog.Default())
		res, err := learner.Learn(cf.OriginalText, cf.Predicted, cf.Corrections)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(learnCmd)
}
