package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"imagebot/internal/dispatch"
	"imagebot/internal/imaging"
	"imagebot/internal/logging"
)

// Router receives parsed events. *dispatch.Coordinator satisfies it.
type Router interface {
	Route(ctx context.Context, ev dispatch.Event)
}

// Options configure a Session.
type Options struct {
	SubjectID string // identity used for cooldowns, defaults to "console"
	ContextID string
	OutputDir string
	Prompt    string // printed before each line; empty disables it
}

// Session reads lines from in, routes them and renders replies to out.
type Session struct {
	router   Router
	in       io.Reader
	out      io.Writer
	renderer *Renderer
	opts     Options

	lines int
}

// NewSession creates a session.
func NewSession(router Router, in io.Reader, out io.Writer, opts Options) *Session {
	if opts.SubjectID == "" {
		opts.SubjectID = "console"
	}
	if opts.ContextID == "" {
		opts.ContextID = "terminal"
	}
	return &Session{
		router:   router,
		in:       in,
		out:      out,
		renderer: NewRenderer(out, opts.OutputDir),
		opts:     opts,
	}
}

// Lines returns how many non-empty lines were read.
func (s *Session) Lines() int { return s.lines }

// Run processes input until EOF, "quit", or ctx is done. EOF and quit return nil.
func (s *Session) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if err := s.handleLine(ctx, line); err != nil {
				if errors.Is(err, ErrQuit) {
					return nil
				}
				s.renderer.Error(err)
			}
		}
	}
}

func (s *Session) prompt() {
	if s.opts.Prompt != "" {
		fmt.Fprint(s.out, s.opts.Prompt)
	}
}

func (s *Session) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	s.lines++

	in, err := ParseLine(line)
	if err != nil {
		return err
	}

	files, err := loadAttachments(in.Files)
	if err != nil {
		return err
	}

	ev := &Event{
		input:    in,
		subject:  s.opts.SubjectID,
		context:  s.opts.ContextID,
		files:    files,
		renderer: s.renderer,
	}
	logging.ConsoleDebug("Routing %s %q", in.Category, in.Token)
	s.router.Route(ctx, ev)
	return nil
}

func loadAttachments(paths []string) ([]dispatch.Attachment, error) {
	var out []dispatch.Attachment
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		out = append(out, dispatch.Attachment{
			Name:     filepath.Base(p),
			MimeType: imaging.DetectMimeType(data),
			Data:     data,
		})
	}
	return out, nil
}
