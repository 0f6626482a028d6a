package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/session"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
)

const commandHelp = `/new [NAME]      start a new conversation
/switch NAME     switch to an existing conversation
/list            list conversations
/reset           clear the current conversation
/search QUERY    search the current conversation
/image [PATH]    attach an image to the next message, no path clears it
/tokens          show the token estimate
/export [PATH]   write the current conversation to a file
/quit            leave`

type CommandResult struct {
	Output string
	Quit   bool
}

// Commands runs the slash commands typed into the chat input.
type Commands struct {
	controller *session.Controller

	// PendingImage is sent with the next submitted message and then cleared.
	PendingImage *conversation.ImageContent
}

func NewCommands(controller *session.Controller) *Commands {
	return &Commands{
		controller: controller,
	}
}

func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "/")
}

// ParseCommand splits "/name args..." into the lowercased name and the rest of the
// line.
func ParseCommand(line string) (string, string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, args, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

// TakePendingImage returns the attached image and clears it.
func (c *Commands) TakePendingImage() *conversation.ImageContent {
	img := c.PendingImage
	c.PendingImage = nil
	return img
}

func (c *Commands) Execute(ctx context.Context, line string) (CommandResult, error) {
	name, args := ParseCommand(line)

	switch name {
	case "new":
		created, err := c.controller.NewConversation(ctx, args)
		if err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Output: fmt.Sprintf("started %q", created)}, nil

	case "switch":
		if args == "" {
			return CommandResult{}, errors.Wrap(ErrMissingArgument, "usage: /switch NAME")
		}
		if err := c.controller.SelectConversation(ctx, args); err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Output: fmt.Sprintf("switched to %q", args)}, nil

	case "list":
		current := c.controller.Current().Name
		lines := lo.Map(c.controller.Names(), func(n string, _ int) string {
			if n == current {
				return "* " + n
			}
			return "  " + n
		})
		return CommandResult{Output: strings.Join(lines, "\n")}, nil

	case "reset":
		if err := c.controller.ResetConversation(ctx); err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Output: fmt.Sprintf("cleared %q", c.controller.Current().Name)}, nil

	case "search":
		if args == "" {
			return CommandResult{}, errors.Wrap(ErrMissingArgument, "usage: /search QUERY")
		}
		return CommandResult{Output: formatSearchResults(c.controller.Search(args))}, nil

	case "image":
		if args == "" {
			c.PendingImage = nil
			return CommandResult{Output: "image cleared"}, nil
		}
		img, err := conversation.NewImageContentFromFile(args)
		if err != nil {
			return CommandResult{}, err
		}
		c.PendingImage = img
		return CommandResult{Output: fmt.Sprintf("attached %s to the next message", img.ImageName)}, nil

	case "tokens":
		current := c.controller.Current()
		return CommandResult{
			Output: fmt.Sprintf("%q: %d messages, about %d tokens", current.Name, current.Len(), current.TokenCount),
		}, nil

	case "export":
		current := c.controller.Current()
		filename := args
		if filename == "" {
			filename = conversation.ExportFileName(current.Name, ".json")
		}
		if err := c.controller.Export(filename); err != nil {
			return CommandResult{}, err
		}
		return CommandResult{Output: fmt.Sprintf("exported %q to %s", current.Name, filename)}, nil

	case "help", "?":
		return CommandResult{Output: commandHelp}, nil

	case "quit", "exit", "q":
		return CommandResult{Quit: true}, nil

	default:
		return CommandResult{}, errors.Wrapf(ErrUnknownCommand, "/%s", name)
	}
}

func formatSearchResults(results []conversation.SearchResult) string {
	if len(results) == 0 {
		return "no matches"
	}

	more := len(results) - conversation.MaxSearchResults
	if more > 0 {
		results = results[:conversation.MaxSearchResults]
	}

	lines := lo.Map(results, func(r conversation.SearchResult, _ int) string {
		return fmt.Sprintf("#%d [%s]: %s", r.Index, r.Message.Role, firstLine(r.Message.Text()))
	})
	if more > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more", more))
	}
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(s, "\n")
	if cut {
		return line + " ..."
	}
	return line
}
