package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"imagebot/internal/config"
	"imagebot/internal/console"
	"imagebot/internal/logging"
)

var (
	consoleSubject string
	consoleWatch   bool
)

// sweepInterval is how often expired cooldown entries are swept.
const sweepInterval = time.Minute

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the bot against this terminal",
	Long: `Reads one event per line and prints the bot's replies.

  /imagine <prompt>                     generate an image
  /edit prompt="..." image=<path>       edit a local image
  /help, /status                        informational commands
  click <token>                         press a button from a reply
  form <token> prompt="..."             submit a form from a reply
  quit                                  exit

Images are saved to bot.output_dir.`,
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if consoleWatch {
		w, err := config.NewWatcher(configPath, a.reloadDispatch)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			logging.ConfigWarn("Hot reload disabled: %v", err)
		}
		defer w.Stop()
	}

	session := console.NewSession(a.coord, cmd.InOrStdin(), cmd.OutOrStdout(), console.Options{
		SubjectID: consoleSubject,
		OutputDir: cfg.Bot.OutputDir,
		Prompt:    "> ",
	})

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer cancel()
		err := session.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := a.coord.Ledger().SweepExpired(); n > 0 {
					logging.CooldownDebug("Swept %d expired cooldowns", n)
				}
			}
		}
	})

	err = g.Wait()
	cancel()
	logging.Boot("Console session ended after %d lines", session.Lines())
	return err
}
