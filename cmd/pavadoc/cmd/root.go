package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rigadev/pavadoc/internal/config"
	"github.com/rigadev/pavadoc/internal/version"
)

var (
	configLoader *config.Loader
	globalConfig *config.Config
	cfgFile      string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pavadoc",
	Short: "OCR and field extraction for Latvian invoices and delivery notes",
	Long: `pavadoc turns scanned Latvian invoices and delivery notes into
structured records.

Scanned pages go through structure-aware OCR (per-zone preprocessing and
recognition, confidence-weighted fusion); PDFs with embedded text skip
OCR entirely. Extracted fields come from a hybrid of curated regular
expressions and patterns learned from operator corrections.

Examples:
  pavadoc process invoice.pdf
  pavadoc process scans/*.png --format json --output results.json
  pavadoc learn correction.json
  pavadoc patterns --export`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	v, commit, date := version.Info()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pavadoc, /etc/pavadoc)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if globalConfig == nil {
			initConfig()
		}

		level := globalConfig.LogLevel
		if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
			level = flagLevel
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}

		var logLevel slog.Level
		switch level {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}

		// Logs go to stderr; stdout carries command output.
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	}
}

// initConfig reads the config file and environment variables.
func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	return globalConfig
}
