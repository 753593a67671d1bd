package console_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"imagebot/internal/console"
	"imagebot/internal/cooldown"
	"imagebot/internal/dispatch"
	"imagebot/internal/handlers"
	"imagebot/internal/provider"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		want *console.Input
	}{
		{
			line: "/imagine a lighthouse at dusk",
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "imagine", Options: map[string]string{"prompt": "a lighthouse at dusk"}},
		},
		{
			line: `/edit prompt="make it winter" image=./photo.png`,
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "edit", Options: map[string]string{"prompt": "make it winter"}, Files: []string{"./photo.png"}},
		},
		{
			line: "/imagine a chalkboard reading E=mc2",
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "imagine", Options: map[string]string{"prompt": "a chalkboard reading E=mc2"}},
		},
		{
			line: "/imagine size=large cat image=cat.png",
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "imagine", Options: map[string]string{"prompt": "size=large cat"}, Files: []string{"cat.png"}},
		},
		{
			line: "/imagine prompt=explicit",
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "imagine", Options: map[string]string{"prompt": "explicit"}},
		},
		{
			line: `form edit_modal_abc prompt="x" style=ink`,
			want: &console.Input{Category: dispatch.CategoryForm, Token: "edit_modal_abc", Options: map[string]string{"prompt": "x", "style": "ink"}},
		},
		{
			line: "/status",
			want: &console.Input{Category: dispatch.CategoryCommand, Token: "status", Options: map[string]string{}},
		},
		{
			line: "click regenerate_abc",
			want: &console.Input{Category: dispatch.CategoryAction, Token: "regenerate_abc", Options: map[string]string{}},
		},
		{
			line: `form edit_modal_abc prompt="add snow"`,
			want: &console.Input{Category: dispatch.CategoryForm, Token: "edit_modal_abc", Options: map[string]string{"prompt": "add snow"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := console.ParseLine(tt.line)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseLine mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	_, err := console.ParseLine("quit")
	assert.ErrorIs(t, err, console.ErrQuit)

	for _, line := range []string{"", "/", "click", "click a b", "form", "form tok bare", "hello", `/imagine "unterminated`, "/imagine prompt=explicit extra words"} {
		_, err := console.ParseLine(line)
		assert.ErrorIs(t, err, console.ErrSyntax, "line %q", line)
	}
}

func TestRendererReplies(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	r := console.NewRenderer(&out, dir)

	require.NoError(t, r.Render(dispatch.Reply{Content: "Please wait 3.0s", Ephemeral: true}, false))
	require.NoError(t, r.Render(dispatch.Reply{
		Content:   "done",
		Image:     []byte("png"),
		ImageMime: "image/png",
		ImageName: "../abc.png",
		Buttons:   []dispatch.Button{{Label: "Regenerate", Token: "regenerate_abc"}},
	}, true))
	require.NoError(t, r.Render(dispatch.Reply{Form: &dispatch.Form{
		Token:  "edit_modal_abc",
		Title:  "Edit image",
		Fields: []dispatch.FormField{{Name: "prompt", Label: "Describe the change", Value: "a cat"}},
	}}, false))

	text := out.String()
	assert.Contains(t, text, "(only you) Please wait 3.0s")
	assert.Contains(t, text, "↳ done")
	assert.Contains(t, text, "[Regenerate] click regenerate_abc")
	assert.Contains(t, text, `submit with: form edit_modal_abc prompt="a cat"`)

	data, err := os.ReadFile(filepath.Join(dir, "abc.png"))
	require.NoError(t, err, "image name is reduced to its base name")
	assert.Equal(t, []byte("png"), data)
}

func TestRendererWithoutOutputDir(t *testing.T) {
	var out bytes.Buffer
	r := console.NewRenderer(&out, "")
	require.NoError(t, r.Render(dispatch.Reply{Image: []byte("1234"), ImageMime: "image/png"}, false))
	assert.Contains(t, out.String(), "image: 4 bytes (image/png), saving disabled")
}

type recordingRouter struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (r *recordingRouter) Route(ctx context.Context, ev dispatch.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	_ = dispatch.Send(ctx, ev, dispatch.Reply{Content: "first"})
	_ = dispatch.Send(ctx, ev, dispatch.Reply{Content: "second"})
}

func TestSessionRoutesLines(t *testing.T) {
	img := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nrest"), 0644))

	input := strings.Join([]string{
		"# comment",
		"",
		"/edit prompt=sepia image=" + img,
		"nonsense",
		"click regenerate_x",
		"quit",
		"/never routed",
	}, "\n")

	router := &recordingRouter{}
	var out bytes.Buffer
	s := console.NewSession(router, strings.NewReader(input), &out, console.Options{SubjectID: "u1"})
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, router.events, 2)
	edit := router.events[0]
	assert.Equal(t, dispatch.CategoryCommand, edit.Category())
	assert.Equal(t, "edit", edit.Token())
	assert.Equal(t, "u1", edit.SubjectID())
	assert.Equal(t, "sepia", edit.Option("prompt"))
	require.Len(t, edit.Attachments(), 1)
	assert.Equal(t, "image/png", edit.Attachments()[0].MimeType)
	assert.True(t, edit.HasResponded())

	assert.Equal(t, dispatch.CategoryAction, router.events[1].Category())
	assert.Equal(t, 4, s.Lines())

	text := out.String()
	assert.Contains(t, text, "» first")
	assert.Contains(t, text, "↳ second")
	assert.Contains(t, text, "error: syntax error")
}

func TestSessionQuitReleasesReader(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	router := &recordingRouter{}
	s := console.NewSession(router, strings.NewReader("quit\n/help\n/help\n"), io.Discard, console.Options{})
	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, router.events)
}

func TestSessionMissingAttachment(t *testing.T) {
	router := &recordingRouter{}
	var out bytes.Buffer
	s := console.NewSession(router, strings.NewReader("/edit prompt=x image=/does/not/exist.png\n"), &out, console.Options{})
	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, router.events)
	assert.Contains(t, out.String(), "read attachment")
}

func TestSessionStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := console.NewSession(&recordingRouter{}, pr, io.Discard, console.Options{})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// Unblock the reader goroutine.
	pw.Close()
}

type stubProvider struct{}

func (stubProvider) IsAvailable() bool   { return true }
func (stubProvider) Info() provider.Info { return provider.Info{Name: "stub", Version: "0"} }
func (stubProvider) Generate(context.Context, string) (*provider.Result, error) {
	return &provider.Result{Success: true, Buffer: []byte("img"), MimeType: "image/png"}, nil
}
func (stubProvider) Edit(context.Context, string, []byte, string) (*provider.Result, error) {
	return &provider.Result{Success: true, Buffer: []byte("edited"), MimeType: "image/png"}, nil
}

func TestSessionEndToEnd(t *testing.T) {
	coord := dispatch.NewCoordinator(cooldown.NewLedger())
	defer coord.Close()
	svc := handlers.New(handlers.Deps{Provider: stubProvider{}, Coordinator: coord}, handlers.BotInfo{Name: "imagebot"})
	require.NoError(t, svc.Register(nil))

	dir := t.TempDir()
	var out bytes.Buffer
	input := "/imagine a red fox in snow\n/imagine again too soon\n/nope\nclick unknown_token\n"
	s := console.NewSession(coord, strings.NewReader(input), &out, console.Options{OutputDir: dir})
	require.NoError(t, s.Run(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	id := strings.TrimSuffix(entries[0].Name(), ".png")

	text := out.String()
	assert.Contains(t, text, "click "+handlers.ActionRegenerate+id)
	assert.Contains(t, text, "Please wait")
	assert.Contains(t, text, dispatch.UnrecognizedNotice)
	assert.Equal(t, uint64(1), coord.Stats().Dropped)
}
