// Package console is a line-oriented event source for running the bot locally.
//
// Each input line becomes one dispatch.Event:
//
//	/imagine a lighthouse at dusk
//	/edit prompt="make it winter" image=./photo.png
//	click regenerate_<id>
//	form edit_modal_<id> prompt="add snow"
//
// Replies are rendered to the terminal and any image is written to the output directory.
package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"imagebot/internal/dispatch"
)

var (
	// ErrQuit is returned by ParseLine for "quit" and "exit".
	ErrQuit = errors.New("quit")
	// ErrSyntax marks a line that could not be turned into an event.
	ErrSyntax = errors.New("syntax error")
)

// Option keys whose value is a file path rather than text.
const fileOption = "image"

// commandOptions are the keys recognized on a command line. Any other
// name=value word is prompt text, e.g. "E=mc2".
var commandOptions = map[string]bool{"prompt": true, fileOption: true}

// Input is a parsed console line.
type Input struct {
	Category dispatch.Category
	Token    string
	Options  map[string]string
	Files    []string
}

// ParseLine turns one line of input into an Input. Bare words after a command are
// joined into the prompt option unless prompt= was given explicitly.
func ParseLine(line string) (*Input, error) {
	words, err := shellquote.Split(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrSyntax)
	}

	head, rest := words[0], words[1:]
	switch {
	case head == "quit" || head == "exit":
		return nil, ErrQuit

	case strings.HasPrefix(head, "/"):
		name := strings.TrimPrefix(head, "/")
		if name == "" {
			return nil, fmt.Errorf("%w: missing command name", ErrSyntax)
		}
		in := newInput(dispatch.CategoryCommand, name)
		bare := in.addOptions(rest, commandOptions)
		if len(bare) > 0 {
			if _, ok := in.Options["prompt"]; ok {
				return nil, fmt.Errorf("%w: prompt= given along with extra text %q", ErrSyntax, strings.Join(bare, " "))
			}
			in.Options["prompt"] = strings.Join(bare, " ")
		}
		return in, nil

	case head == "click":
		if len(rest) != 1 {
			return nil, fmt.Errorf("%w: usage: click <token>", ErrSyntax)
		}
		return newInput(dispatch.CategoryAction, rest[0]), nil

	case head == "form":
		if len(rest) == 0 {
			return nil, fmt.Errorf("%w: usage: form <token> field=value ...", ErrSyntax)
		}
		in := newInput(dispatch.CategoryForm, rest[0])
		if bare := in.addOptions(rest[1:], nil); len(bare) > 0 {
			return nil, fmt.Errorf("%w: form fields must be name=value, got %q", ErrSyntax, bare[0])
		}
		return in, nil
	}

	return nil, fmt.Errorf("%w: unknown input %q (try /help, click <token>, form <token>)", ErrSyntax, head)
}

func newInput(cat dispatch.Category, token string) *Input {
	return &Input{Category: cat, Token: token, Options: make(map[string]string)}
}

// addOptions records name=value words and returns the remaining words in order.
// A nil known set accepts every key.
func (in *Input) addOptions(words []string, known map[string]bool) []string {
	var bare []string
	for _, w := range words {
		key, value, ok := strings.Cut(w, "=")
		if !ok || key == "" || (known != nil && !known[key]) {
			bare = append(bare, w)
			continue
		}
		if key == fileOption {
			in.Files = append(in.Files, value)
			continue
		}
		in.Options[key] = value
	}
	return bare
}
