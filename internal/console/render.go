package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"imagebot/internal/dispatch"
	"imagebot/internal/logging"
)

// Styles holds the lipgloss styles used for replies.
type Styles struct {
	Reply     lipgloss.Style
	Amend     lipgloss.Style
	Ephemeral lipgloss.Style
	Button    lipgloss.Style
	Hint      lipgloss.Style
	FormTitle lipgloss.Style
	Saved     lipgloss.Style
	Error     lipgloss.Style
}

var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#2a3850")
	info        = lipgloss.Color("#2196F3")
	destructive = lipgloss.Color("#e53935")
)

// NewStyles builds styles bound to r so color output follows the target writer.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Reply:     r.NewStyle().Bold(true),
		Amend:     r.NewStyle(),
		Ephemeral: r.NewStyle().Foreground(muted).Italic(true),
		Button: r.NewStyle().
			Foreground(accent).
			Bold(true),
		Hint:      r.NewStyle().Foreground(muted),
		FormTitle: r.NewStyle().Foreground(info).Bold(true),
		Saved:     r.NewStyle().Foreground(accent),
		Error:     r.NewStyle().Foreground(destructive).Bold(true),
	}
}

// Renderer writes replies to a terminal and saves image attachments to disk.
type Renderer struct {
	mu        sync.Mutex
	out       io.Writer
	styles    Styles
	outputDir string
}

// NewRenderer creates a renderer writing to out. Images are written under outputDir;
// an empty outputDir disables saving.
func NewRenderer(out io.Writer, outputDir string) *Renderer {
	return &Renderer{
		out:       out,
		styles:    NewStyles(lipgloss.NewRenderer(out)),
		outputDir: outputDir,
	}
}

// Render prints r. amend marks a follow-up to an earlier reply.
func (p *Renderer) Render(r dispatch.Reply, amend bool) error {
	var b strings.Builder

	if r.Content != "" {
		style := p.styles.Reply
		prefix := "» "
		switch {
		case r.Ephemeral:
			style = p.styles.Ephemeral
			prefix = "(only you) "
		case amend:
			style = p.styles.Amend
			prefix = "↳ "
		}
		b.WriteString(style.Render(prefix + r.Content))
		b.WriteString("\n")
	}

	if len(r.Image) > 0 {
		line, err := p.saveImage(r)
		if err != nil {
			logging.ConsoleWarn("Saving image failed: %v", err)
			b.WriteString(p.styles.Error.Render("could not save image: " + err.Error()))
		} else {
			b.WriteString(p.styles.Saved.Render(line))
		}
		b.WriteString("\n")
	}

	for _, btn := range r.Buttons {
		b.WriteString(p.styles.Button.Render("["+btn.Label+"]") + " " + p.styles.Hint.Render("click "+btn.Token))
		b.WriteString("\n")
	}

	if r.Form != nil {
		b.WriteString(p.renderForm(r.Form))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.out, b.String())
	return err
}

// Error prints a local error that did not come from a handler.
func (p *Renderer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.styles.Error.Render("error: "+err.Error()))
}

func (p *Renderer) renderForm(f *dispatch.Form) string {
	var b strings.Builder
	b.WriteString(p.styles.FormTitle.Render(f.Title))
	b.WriteString("\n")

	usage := []string{"form", f.Token}
	for _, field := range f.Fields {
		hint := field.Label
		if field.Placeholder != "" {
			hint += " (" + field.Placeholder + ")"
		}
		b.WriteString(p.styles.Hint.Render("  " + field.Name + ": " + hint))
		b.WriteString("\n")
		usage = append(usage, fmt.Sprintf("%s=%q", field.Name, field.Value))
	}
	b.WriteString(p.styles.Hint.Render("submit with: " + strings.Join(usage, " ")))
	b.WriteString("\n")
	return b.String()
}

func (p *Renderer) saveImage(r dispatch.Reply) (string, error) {
	if p.outputDir == "" {
		return fmt.Sprintf("image: %d bytes (%s), saving disabled", len(r.Image), r.ImageMime), nil
	}
	name := filepath.Base(r.ImageName)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "image.png"
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(p.outputDir, name)
	if err := os.WriteFile(path, r.Image, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	logging.ConsoleDebug("Saved %d bytes to %s", len(r.Image), path)
	return "saved " + path, nil
}
