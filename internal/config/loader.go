package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without
	// extension).
	ConfigFileName = "pavadoc"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PAVADOC"
)

// Loader resolves configuration from files, environment and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a configuration loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load resolves configuration from the search paths, environment
// variables and defaults, then validates it. A missing config file is not
// an error.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.unmarshalAndValidate()
}

// LoadWithFile resolves configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	return l.unmarshalAndValidate()
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Set overrides a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/pavadoc")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "pavadoc"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "pavadoc"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("confidence_threshold", defaults.ConfidenceThreshold)

	l.v.SetDefault("ocr.binary", defaults.OCR.Binary)
	l.v.SetDefault("ocr.language", defaults.OCR.Language)
	l.v.SetDefault("ocr.psm", defaults.OCR.PSM)
	l.v.SetDefault("ocr.timeout_seconds", defaults.OCR.TimeoutSeconds)

	l.v.SetDefault("pdf.max_pages", defaults.PDF.MaxPages)
	l.v.SetDefault("pdf.direct_text_threshold", defaults.PDF.DirectTextThreshold)
	l.v.SetDefault("pdf.target_dpi", defaults.PDF.TargetDPI)

	l.v.SetDefault("learning.store_dir", defaults.Learning.StoreDir)
	l.v.SetDefault("learning.min_examples", defaults.Learning.MinExamples)
	l.v.SetDefault("learning.pattern_expiry_days", defaults.Learning.PatternExpiryDays)

	l.v.SetDefault("preprocess.deskew_enabled", defaults.Preprocess.DeskewEnabled)
	l.v.SetDefault("preprocess.debug_dir", defaults.Preprocess.DebugDir)

	l.v.SetDefault("pipeline.workers", defaults.Pipeline.Workers)
	l.v.SetDefault("pipeline.temp_dir", defaults.Pipeline.TempDir)
}

// GetConfigSearchPaths returns the paths where configuration files are
// searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home, filepath.Join(home, ".config", "pavadoc"))
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "pavadoc"))
	}
	paths = append(paths, "/etc/pavadoc")
	return paths
}
