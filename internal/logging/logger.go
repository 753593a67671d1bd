// Package logging provides config-driven categorized logging for imagebot.
// Every category is a named child of one zap logger; disabled categories get a no-op logger.
// Until Initialize or SetLogger is called all logging is discarded.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Boot/initialization
	CategoryConfig   Category = "config"   // Config loading and hot reload
	CategoryDispatch Category = "dispatch" // Event routing decisions
	CategoryCooldown Category = "cooldown" // Cooldown ledger gate and expiry
	CategoryRetry    Category = "retry"    // Regeneration attempts
	CategoryProvider Category = "provider" // Image provider calls
	CategoryHandlers Category = "handlers" // Command/action/form handlers
	CategoryConsole  Category = "console"  // Terminal event source
	CategoryAudit    Category = "audit"    // Structured dispatch audit trail
)

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // optional extra output path
	Categories map[string]bool // missing categories are enabled
}

// Logger wraps a sugared zap logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the process logger from options.
// Should be called once at startup, before any handler runs.
func Initialize(o Options) (*zap.Logger, error) {
	var zc zap.Config
	if strings.EqualFold(o.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if o.Level != "" {
		parsed, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.Level, err)
		}
		level = parsed
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if o.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, o.File)
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(l, o)
	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s file=%q", level, zc.Encoding, o.File)
	return l, nil
}

// SetLogger replaces the process logger. Tests use it to inject an observer.
func SetLogger(l *zap.Logger, o Options) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// Base returns the process logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if categoryEnabled(category) {
		l.sugar = base.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Category returns the category the logger writes to.
func (l *Logger) Category() Category {
	return l.category
}

// Zap returns the underlying zap logger (a no-op logger when disabled).
func (l *Logger) Zap() *zap.Logger {
	if l.sugar == nil {
		return zap.NewNop()
	}
	return l.sugar.Desugar()
}

// With returns a logger that adds structured key-value context to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries (call at shutdown)
func Sync() error {
	return Base().Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// Config logs to the config category
func Config(format string, args ...interface{}) {
	Get(CategoryConfig).Info(format, args...)
}

// ConfigWarn logs warning to the config category
func ConfigWarn(format string, args ...interface{}) {
	Get(CategoryConfig).Warn(format, args...)
}

// Dispatch logs to the dispatch category
func Dispatch(format string, args ...interface{}) {
	Get(CategoryDispatch).Info(format, args...)
}

// DispatchDebug logs debug to the dispatch category
func DispatchDebug(format string, args ...interface{}) {
	Get(CategoryDispatch).Debug(format, args...)
}

// DispatchWarn logs warning to the dispatch category
func DispatchWarn(format string, args ...interface{}) {
	Get(CategoryDispatch).Warn(format, args...)
}

// DispatchError logs error to the dispatch category
func DispatchError(format string, args ...interface{}) {
	Get(CategoryDispatch).Error(format, args...)
}

// CooldownDebug logs debug to the cooldown category
func CooldownDebug(format string, args ...interface{}) {
	Get(CategoryCooldown).Debug(format, args...)
}

// Retry logs to the retry category
func Retry(format string, args ...interface{}) {
	Get(CategoryRetry).Info(format, args...)
}

// RetryDebug logs debug to the retry category
func RetryDebug(format string, args ...interface{}) {
	Get(CategoryRetry).Debug(format, args...)
}

// RetryWarn logs warning to the retry category
func RetryWarn(format string, args ...interface{}) {
	Get(CategoryRetry).Warn(format, args...)
}

// Provider logs to the provider category
func Provider(format string, args ...interface{}) {
	Get(CategoryProvider).Info(format, args...)
}

// ProviderDebug logs debug to the provider category
func ProviderDebug(format string, args ...interface{}) {
	Get(CategoryProvider).Debug(format, args...)
}

// ProviderWarn logs warning to the provider category
func ProviderWarn(format string, args ...interface{}) {
	Get(CategoryProvider).Warn(format, args...)
}

// Handlers logs to the handlers category
func Handlers(format string, args ...interface{}) {
	Get(CategoryHandlers).Info(format, args...)
}

// HandlersDebug logs debug to the handlers category
func HandlersDebug(format string, args ...interface{}) {
	Get(CategoryHandlers).Debug(format, args...)
}

// HandlersWarn logs warning to the handlers category
func HandlersWarn(format string, args ...interface{}) {
	Get(CategoryHandlers).Warn(format, args...)
}

// ConsoleDebug logs debug to the console category
func ConsoleDebug(format string, args ...interface{}) {
	Get(CategoryConsole).Debug(format, args...)
}

// ConsoleWarn logs warning to the console category
func ConsoleWarn(format string, args ...interface{}) {
	Get(CategoryConsole).Warn(format, args...)
}
