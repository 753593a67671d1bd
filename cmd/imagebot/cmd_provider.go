package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Show image provider details and availability",
	RunE:  runProvider,
}

func runProvider(cmd *cobra.Command, args []string) error {
	p := buildProvider(cmd.Context(), cfg)
	info := p.Info()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Provider:  %s %s\n", info.Name, info.Version)
	fmt.Fprintf(out, "Model:     %s\n", cfg.Provider.Model)
	if len(info.SupportedFormats) > 0 {
		fmt.Fprintf(out, "Formats:   %s\n", strings.Join(info.SupportedFormats, ", "))
	}
	if info.MaxPromptLength > 0 {
		fmt.Fprintf(out, "Max prompt: %d\n", info.MaxPromptLength)
	}
	if p.IsAvailable() {
		fmt.Fprintln(out, "Status:    ready")
	} else {
		fmt.Fprintln(out, "Status:    unavailable (set GEMINI_API_KEY)")
	}
	return nil
}
