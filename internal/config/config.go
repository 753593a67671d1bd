package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"imagebot/internal/dispatch"
	"imagebot/internal/imaging"
	"imagebot/internal/provider"
	"imagebot/internal/regenerate"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "imagebot.yaml"

// ErrInvalidProvider indicates an unsupported provider name.
var ErrInvalidProvider = errors.New("invalid image provider")

// Config holds all imagebot configuration.
type Config struct {
	Bot          BotConfig          `yaml:"bot"`
	Provider     ProviderConfig     `yaml:"provider"`
	Dispatch     DispatchConfig     `yaml:"dispatch"`
	Regeneration RegenerationConfig `yaml:"regeneration"`
	Validation   ValidationConfig   `yaml:"validation"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// BotConfig identifies the bot.
type BotConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	OutputDir string `yaml:"output_dir"` // where the console source saves images
}

// ProviderConfig configures the image provider.
type ProviderConfig struct {
	Name          string `yaml:"name"` // gemini
	APIKey        string `yaml:"api_key,omitempty"`
	Model         string `yaml:"model"`
	Timeout       string `yaml:"timeout"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// DispatchConfig configures command routing.
type DispatchConfig struct {
	DefaultCooldown string                   `yaml:"default_cooldown"`
	Commands        map[string]CommandConfig `yaml:"commands,omitempty"`
}

// CommandConfig overrides one command. Cooldown accepts a duration, or "off"/"0" to disable.
type CommandConfig struct {
	Cooldown string `yaml:"cooldown"`
}

// RegenerationConfig configures the retry policy.
type RegenerationConfig struct {
	MaxRetries        int      `yaml:"max_retries"`
	EnableAutoRetry   bool     `yaml:"enable_auto_retry"`
	AutoRetryKeywords []string `yaml:"auto_retry_keywords"`
	RetryDelay        string   `yaml:"retry_delay"`
}

// ValidationConfig configures prompt and image checks.
type ValidationConfig struct {
	MinPromptLength  int      `yaml:"min_prompt_length"`
	MaxPromptLength  int      `yaml:"max_prompt_length"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`
	MaxImageBytes    int      `yaml:"max_image_bytes"`
}

// HistoryConfig bounds the in-memory generation history.
type HistoryConfig struct {
	MaxEntries int    `yaml:"max_entries"`
	TTL        string `yaml:"ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	gemini := provider.DefaultGeminiConfig()
	regen := regenerate.DefaultConfig()
	rules := imaging.DefaultRules()

	return &Config{
		Bot: BotConfig{
			Name:      "imagebot",
			Version:   "0.1.0",
			OutputDir: "out",
		},

		Provider: ProviderConfig{
			Name:          "gemini",
			Model:         gemini.Model,
			Timeout:       gemini.Timeout.String(),
			MaxConcurrent: gemini.MaxConcurrent,
		},

		Dispatch: DispatchConfig{
			DefaultCooldown: dispatch.DefaultCommandCooldown.String(),
		},

		Regeneration: RegenerationConfig{
			MaxRetries:        regen.MaxRetries,
			EnableAutoRetry:   regen.EnableAutoRetry,
			AutoRetryKeywords: regen.AutoRetryKeywords,
			RetryDelay:        regen.RetryDelay.String(),
		},

		Validation: ValidationConfig{
			MinPromptLength:  rules.MinPromptLength,
			MaxPromptLength:  rules.MaxPromptLength,
			AllowedMimeTypes: rules.AllowedMimeTypes,
			MaxImageBytes:    rules.MaxImageBytes,
		},

		History: HistoryConfig{
			MaxEntries: 200,
			TTL:        "24h",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file. The API key is never written.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.Provider.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over GOOGLE_API_KEY.
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if model := os.Getenv("IMAGEBOT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if level := os.Getenv("IMAGEBOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("IMAGEBOT_OUTPUT_DIR"); dir != "" {
		c.Bot.OutputDir = dir
	}
}

// =============================================================================
// GETTERS
// =============================================================================

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return d
}

// GetProviderTimeout returns the provider request timeout.
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDuration(c.Provider.Timeout, 120*time.Second)
}

// GetRetryDelay returns the delay between regeneration attempts.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDuration(c.Regeneration.RetryDelay, time.Second)
}

// GetDefaultCooldown returns the cooldown for commands without an override.
func (c *Config) GetDefaultCooldown() time.Duration {
	return parseDuration(c.Dispatch.DefaultCooldown, dispatch.DefaultCommandCooldown)
}

// GetHistoryTTL returns how long generations stay available for follow-up actions.
func (c *Config) GetHistoryTTL() time.Duration {
	return parseDuration(c.History.TTL, 24*time.Hour)
}

// GetCommandCooldown returns the override for name and whether one is configured.
// A disabled cooldown is reported as dispatch.NoCooldown.
func (c *Config) GetCommandCooldown(name string) (time.Duration, bool) {
	cmd, ok := c.Dispatch.Commands[name]
	if !ok || strings.TrimSpace(cmd.Cooldown) == "" {
		return 0, false
	}
	switch strings.ToLower(strings.TrimSpace(cmd.Cooldown)) {
	case "off", "none", "disabled", "0":
		return dispatch.NoCooldown, true
	}
	d, err := time.ParseDuration(strings.TrimSpace(cmd.Cooldown))
	if err != nil {
		return 0, false
	}
	if d <= 0 {
		return dispatch.NoCooldown, true
	}
	return d, true
}

// GetCommandCooldowns returns every valid per-command override.
func (c *Config) GetCommandCooldowns() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Dispatch.Commands))
	for name := range c.Dispatch.Commands {
		if d, ok := c.GetCommandCooldown(name); ok {
			out[name] = d
		}
	}
	return out
}

// =============================================================================
// COMPONENT CONFIGS
// =============================================================================

// GeminiConfig returns the provider adapter configuration.
func (c *Config) GeminiConfig() provider.GeminiConfig {
	return provider.GeminiConfig{
		APIKey:        c.Provider.APIKey,
		Model:         c.Provider.Model,
		Timeout:       c.GetProviderTimeout(),
		MaxConcurrent: c.Provider.MaxConcurrent,
	}
}

// RegenerationPolicy returns the retry policy.
func (c *Config) RegenerationPolicy() regenerate.Config {
	keywords := c.Regeneration.AutoRetryKeywords
	if keywords == nil {
		keywords = regenerate.DefaultAutoRetryKeywords
	}
	return regenerate.Config{
		MaxRetries:        c.Regeneration.MaxRetries,
		EnableAutoRetry:   c.Regeneration.EnableAutoRetry,
		AutoRetryKeywords: append([]string{}, keywords...),
		RetryDelay:        c.GetRetryDelay(),
	}
}

// ValidationRules returns the request validation rules.
func (c *Config) ValidationRules() imaging.Rules {
	return imaging.Rules{
		MinPromptLength:  c.Validation.MinPromptLength,
		MaxPromptLength:  c.Validation.MaxPromptLength,
		AllowedMimeTypes: append([]string(nil), c.Validation.AllowedMimeTypes...),
		MaxImageBytes:    c.Validation.MaxImageBytes,
	}
}

// ApplyDispatch pushes cooldown settings into a running coordinator.
// Commands whose override was removed fall back to the default.
func (c *Config) ApplyDispatch(coord *dispatch.Coordinator, registered map[string]time.Duration) {
	coord.SetDefaultCooldown(c.GetDefaultCooldown())
	overrides := c.GetCommandCooldowns()
	for _, info := range coord.CommandList() {
		if d, ok := overrides[info.Name]; ok {
			coord.SetCommandCooldown(info.Name, d)
			continue
		}
		coord.SetCommandCooldown(info.Name, registered[info.Name])
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidProviders lists the supported image providers.
var ValidProviders = []string{"gemini"}

// Validate validates the configuration. A missing API key is not an error: the bot
// starts with the provider reported as unavailable.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.Provider.Name == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidProvider, c.Provider.Name, ValidProviders)
	}

	var errs []error
	for field, value := range map[string]string{
		"provider.timeout":          c.Provider.Timeout,
		"regeneration.retry_delay":  c.Regeneration.RetryDelay,
		"dispatch.default_cooldown": c.Dispatch.DefaultCooldown,
		"history.ttl":               c.History.TTL,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", field))
		}
	}
	for name, cmd := range c.Dispatch.Commands {
		if _, ok := c.GetCommandCooldown(name); !ok && strings.TrimSpace(cmd.Cooldown) != "" {
			errs = append(errs, fmt.Errorf("dispatch.commands.%s.cooldown: invalid duration %q", name, cmd.Cooldown))
		}
	}
	if c.Regeneration.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("regeneration.max_retries must be >= 0"))
	}
	if c.Validation.MaxPromptLength < 0 || c.Validation.MaxImageBytes < 0 {
		errs = append(errs, fmt.Errorf("validation limits must not be negative"))
	}
	if err := c.Logging.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HasAPIKey reports whether a provider key is configured.
func (c *Config) HasAPIKey() bool {
	return c.Provider.APIKey != ""
}
