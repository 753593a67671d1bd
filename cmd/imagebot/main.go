package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"imagebot/internal/config"
	"imagebot/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "imagebot",
	Short: "imagebot - chat bot backend for image generation",
	Long: `imagebot routes chat commands, button clicks and form submissions to
image generation handlers backed by Gemini.

Commands are rate limited per user, failed generations can be regenerated with
bounded automatic retries, and the console subcommand runs the bot locally
against your terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		logger, err = logging.Initialize(cfg.Logging.ToLoggingOptions(verbose))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("Loaded config from %s (provider=%s model=%s)", configPath, cfg.Provider.Name, cfg.Provider.Model)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logging.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the imagebot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imagebot %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to imagebot.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	consoleCmd.Flags().StringVar(&consoleSubject, "user", "console", "User ID the console session acts as")
	consoleCmd.Flags().BoolVar(&consoleWatch, "watch", true, "Reload command cooldowns when the config file changes")

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(providerCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
