// Package config loads and validates the application configuration from
// YAML files and PAVADOC_* environment variables.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	LogLevel            string           `mapstructure:"log_level" yaml:"log_level"`
	ConfidenceThreshold float64          `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	OCR                 OCRConfig        `mapstructure:"ocr" yaml:"ocr"`
	PDF                 PDFConfig        `mapstructure:"pdf" yaml:"pdf"`
	Learning            LearningConfig   `mapstructure:"learning" yaml:"learning"`
	Preprocess          PreprocessConfig `mapstructure:"preprocess" yaml:"preprocess"`
	Pipeline            PipelineConfig   `mapstructure:"pipeline" yaml:"pipeline"`
}

// OCRConfig configures the Tesseract engine.
type OCRConfig struct {
	Binary         string `mapstructure:"binary" yaml:"binary"`
	Language       string `mapstructure:"language" yaml:"language"`
	PSM            int    `mapstructure:"psm" yaml:"psm"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// PDFConfig configures PDF content extraction.
type PDFConfig struct {
	MaxPages            int `mapstructure:"max_pages" yaml:"max_pages"`
	DirectTextThreshold int `mapstructure:"direct_text_threshold" yaml:"direct_text_threshold"`
	TargetDPI           int `mapstructure:"target_dpi" yaml:"target_dpi"`
}

// LearningConfig configures the pattern learner.
type LearningConfig struct {
	StoreDir          string `mapstructure:"store_dir" yaml:"store_dir"`
	MinExamples       int    `mapstructure:"min_examples" yaml:"min_examples"`
	PatternExpiryDays int    `mapstructure:"pattern_expiry_days" yaml:"pattern_expiry_days"`
}

// PreprocessConfig configures image preprocessing.
type PreprocessConfig struct {
	DeskewEnabled bool   `mapstructure:"deskew_enabled" yaml:"deskew_enabled"`
	DebugDir      string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// PipelineConfig configures document processing.
type PipelineConfig struct {
	Workers int    `mapstructure:"workers" yaml:"workers"`
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:            "info",
		ConfidenceThreshold: 0.5,
		OCR: OCRConfig{
			Binary:         "tesseract",
			Language:       "lav+eng+deu",
			PSM:            6,
			TimeoutSeconds: 30,
		},
		PDF: PDFConfig{
			MaxPages:            10,
			DirectTextThreshold: 50,
			TargetDPI:           300,
		},
		Learning: LearningConfig{
			StoreDir:          "data",
			MinExamples:       1,
			PatternExpiryDays: 0, // 0 = never expire
		},
		Preprocess: PreprocessConfig{
			DeskewEnabled: true,
		},
		Pipeline: PipelineConfig{
			Workers: 0, // 0 = NumCPU
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("ocr.language must not be empty")
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return fmt.Errorf("ocr.psm must be in [0,13], got %d", c.OCR.PSM)
	}
	if c.OCR.TimeoutSeconds <= 0 {
		return fmt.Errorf("ocr.timeout_seconds must be positive, got %d", c.OCR.TimeoutSeconds)
	}
	if c.PDF.MaxPages <= 0 {
		return fmt.Errorf("pdf.max_pages must be positive, got %d", c.PDF.MaxPages)
	}
	if c.PDF.DirectTextThreshold < 0 {
		return fmt.Errorf("pdf.direct_text_threshold must not be negative, got %d", c.PDF.DirectTextThreshold)
	}
	if c.Learning.MinExamples < 1 {
		return fmt.Errorf("learning.min_examples must be at least 1, got %d", c.Learning.MinExamples)
	}
	if c.Learning.PatternExpiryDays < 0 {
		return fmt.Errorf("learning.pattern_expiry_days must not be negative, got %d", c.Learning.PatternExpiryDays)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must not be negative, got %d", c.Pipeline.Workers)
	}
	return nil
}
