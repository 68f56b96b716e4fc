package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration as YAML, after merging defaults,
the config file and PAVADOC_* environment variables. The output is a
valid config file.

Examples:
  pavadoc config
  pavadoc config > pavadoc.yaml`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}

		if used := configLoader.GetConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "# loaded from %s\n", used)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
