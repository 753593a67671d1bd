package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"imagebot/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Format     string          `yaml:"format"`               // json, console
	File       string          `yaml:"file,omitempty"`       // additional output path
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories that are not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// ToLoggingOptions converts the section into logger options. verbose forces debug level.
func (c *LoggingConfig) ToLoggingOptions(verbose bool) logging.Options {
	level := c.Level
	if verbose {
		level = "debug"
	}
	return logging.Options{
		Level:      level,
		Format:     c.Format,
		File:       c.File,
		Categories: c.Categories,
	}
}

func (c *LoggingConfig) validate() error {
	if c.Level != "" {
		if _, err := zapcore.ParseLevel(c.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format: unknown format %q (valid: json, console)", c.Format)
	}
	return nil
}
