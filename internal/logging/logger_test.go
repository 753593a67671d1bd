package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core), o)
	t.Cleanup(func() { SetLogger(nil, Options{}) })
	return logs
}

// TestAllCategoriesLog tests that every category writes through its named logger
func TestAllCategoriesLog(t *testing.T) {
	logs := observe(t, Options{})

	categories := []Category{
		CategoryBoot,
		CategoryConfig,
		CategoryDispatch,
		CategoryCooldown,
		CategoryRetry,
		CategoryProvider,
		CategoryHandlers,
		CategoryConsole,
	}

	for _, cat := range categories {
		require.True(t, IsCategoryEnabled(cat), "category %s should be enabled", cat)
		Get(cat).Info("info for %s", cat)
	}

	entries := logs.All()
	require.Len(t, entries, len(categories))
	for i, cat := range categories {
		assert.Equal(t, string(cat), entries[i].LoggerName)
		assert.Equal(t, "info for "+string(cat), entries[i].Message)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	logs := observe(t, Options{})

	Boot("boot %d", 1)
	DispatchWarn("dispatch %s", "warn")
	RetryDebug("retry debug")
	ProviderWarn("provider warn")
	HandlersDebug("handlers")

	entries := logs.All()
	require.Len(t, entries, 5)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "boot 1", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "dispatch warn", entries[1].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, "provider", entries[3].LoggerName)
}

func TestCategoryToggle(t *testing.T) {
	logs := observe(t, Options{Categories: map[string]bool{
		"dispatch": false,
		"retry":    true,
	}})

	assert.False(t, IsCategoryEnabled(CategoryDispatch))
	assert.True(t, IsCategoryEnabled(CategoryRetry))
	assert.True(t, IsCategoryEnabled(CategoryProvider), "unlisted categories default to enabled")

	Dispatch("dropped")
	Retry("kept")
	Provider("kept too")

	assert.Equal(t, 0, logs.FilterLoggerName("dispatch").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("retry").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("provider").Len())
}

func TestWithAddsContext(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategoryHandlers).With("subject", "u1").Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].ContextMap()["subject"])
}

func TestNoopBeforeInitialize(t *testing.T) {
	SetLogger(nil, Options{})
	// Must not panic
	Get(CategoryBoot).Error("nothing %s", "here")
	assert.NotNil(t, Get(CategoryBoot).Zap())
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imagebot.log")
	t.Cleanup(func() { SetLogger(nil, Options{}) })

	_, err := Initialize(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	Dispatch("written to file")
	_ = Sync() // stderr sync fails on some terminals

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Contains(t, string(data), `"logger":"dispatch"`)
}

func TestInitializeRejectsBadLevel(t *testing.T) {
	_, err := Initialize(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestAuditEvents(t *testing.T) {
	logs := observe(t, Options{})

	AuditWithSubject("u1").ActionCompleted("action", "regenerate_1", 25*time.Millisecond, errors.New("boom"))
	Audit().CooldownBlocked("draw", 3.0)

	entries := logs.FilterLoggerName("audit").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "action_error", first["event"])
	assert.Equal(t, "u1", first["subject"])
	assert.Equal(t, "boom", first["error"])
	assert.Equal(t, false, first["success"])

	second := entries[1].ContextMap()
	assert.Equal(t, "cooldown_block", second["event"])
	assert.Equal(t, "draw", second["target"])
	assert.Equal(t, 3.0, second["remaining_s"])
}
