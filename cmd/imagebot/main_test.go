package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"imagebot/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "IMAGEBOT_MODEL", "IMAGEBOT_LOG_LEVEL", "IMAGEBOT_OUTPUT_DIR"} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "", "version", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "imagebot "+version) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "top-secret")
	path := filepath.Join(t.TempDir(), "imagebot.yaml")
	configForce = false

	if _, err := execute(t, "", "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if strings.Contains(string(raw), "top-secret") {
		t.Error("API key must not be written by config init")
	}

	if _, err := execute(t, "", "config", "init", "--config", path); err == nil {
		t.Error("second init without --force should fail")
	}

	out, err := execute(t, "", "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(out, "top-secret") || !strings.Contains(out, "<set>") {
		t.Errorf("config show must redact the API key:\n%s", out)
	}
	if !strings.Contains(out, "max_retries: 3") {
		t.Errorf("config show missing regeneration settings:\n%s", out)
	}
}

func TestProviderCmdWithoutKey(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "", "provider", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("provider failed: %v", err)
	}
	if !strings.Contains(out, "unavailable") {
		t.Errorf("expected unavailable status, got %q", out)
	}
}

func TestBuildApp(t *testing.T) {
	clearEnv(t)
	c := config.DefaultConfig()
	c.Dispatch.Commands = map[string]config.CommandConfig{"imagine": {Cooldown: "42s"}}

	a, err := buildApp(context.Background(), c)
	if err != nil {
		t.Fatalf("buildApp failed: %v", err)
	}
	defer a.Close()

	if a.provider.IsAvailable() {
		t.Error("provider without key must be unavailable")
	}
	if got := a.coord.CommandCooldown("imagine"); got.Seconds() != 42 {
		t.Errorf("imagine cooldown = %s, want 42s", got)
	}
	for _, name := range []string{"imagine", "edit", "help", "status"} {
		if !a.coord.Commands().Has(name) {
			t.Errorf("command %q not registered", name)
		}
	}

	c.Dispatch.Commands = nil
	a.reloadDispatch(c)
	if got := a.coord.CommandCooldown("imagine"); got.Seconds() != 5 {
		t.Errorf("reload should restore the built-in cooldown, got %s", got)
	}
}

func TestConsoleCmd(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("IMAGEBOT_OUTPUT_DIR", filepath.Join(dir, "out"))
	consoleWatch = false
	consoleSubject = "tester"
	defer func() { consoleWatch = true }()

	input := "/help\n/imagine a quiet harbor at dawn\n/status\nquit\n"
	out, err := execute(t, input, "console", "--config", filepath.Join(dir, "imagebot.yaml"), "--watch=false")
	if err != nil {
		t.Fatalf("console failed: %v", err)
	}

	for _, want := range []string{"/imagine", "not configured", "Active cooldowns"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleCmdRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "imagebot.yaml")
	if err := os.WriteFile(path, []byte("provider:\n  name: dalle\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = nil
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg = loaded
	if err := runConsole(cmd, nil); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}
