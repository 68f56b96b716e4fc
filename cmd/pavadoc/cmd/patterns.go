package cmd

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rigadev/pavadoc/internal/config"
	"github.com/rigadev/pavadoc/internal/learn"
)

// patternsCmd represents the patterns command.
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the learned pattern store",
	Long: `Show aggregate statistics over the learned pattern store, export the
full store as JSON, or purge expired patterns.

Examples:
  pavadoc patterns
  pavadoc patterns --export > patterns.json
  pavadoc patterns --purge`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := newStore(GetConfig())

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		if export, _ := cmd.Flags().GetBool("export"); export {
			return enc.Encode(store.Export())
		}
		if purge, _ := cmd.Flags().GetBool("purge"); purge {
			removed, err := store.PurgeExpired(time.Now())
			if err != nil {
				return err
			}
			return enc.Encode(map[string]int{"purged": removed})
		}
		return enc.Encode(store.Statistics())
	},
}

// newStore opens the pattern store configured for this installation.
func newStore(cfg *config.Config) *learn.Store {
	storeCfg := learn.DefaultStoreConfig(cfg.Learning.StoreDir)
	storeCfg.MinExamples = cfg.Learning.MinExamples
	storeCfg.PatternExpiryDays = cfg.Learning.PatternExpiryDays
	return learn.NewStore(storeCfg, slog.Default())
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().Bool("export", false, "dump the full pattern store as JSON")
	patternsCmd.Flags().Bool("purge", false, "remove expired patterns and report the count")
}
