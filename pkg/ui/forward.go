package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/rs/zerolog/log"
)

type StreamMetadata struct {
	Conversation string
	TurnID       string
	Model        string
}

type StreamStartMsg struct {
	StreamMetadata
}

type StreamCompletionMsg struct {
	StreamMetadata
	Delta string
	// Completion is the display text, ending in the cursor glyph
	Completion string
}

type StreamDoneMsg struct {
	StreamMetadata
	Completion string
}

type StreamCompletionError struct {
	StreamMetadata
	Err string
}

type ConversationChangedMsg struct {
	Action events.ConversationAction
	Name   string
}

// Sender is implemented by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// StepChatForwardFunc turns the events published on the chat topic into bubbletea
// messages.
func StepChatForwardFunc(p Sender) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}

		md := e.Metadata()
		metadata := StreamMetadata{
			Conversation: md.Conversation,
			TurnID:       md.TurnID,
			Model:        md.Model,
		}

		switch e_ := e.(type) {
		case *events.EventPartialCompletionStart:
			p.Send(StreamStartMsg{StreamMetadata: metadata})
		case *events.EventPartialCompletion:
			p.Send(StreamCompletionMsg{
				StreamMetadata: metadata,
				Delta:          e_.Delta,
				Completion:     e_.Completion,
			})
		case *events.EventFinal:
			p.Send(StreamDoneMsg{
				StreamMetadata: metadata,
				Completion:     e_.Text,
			})
		case *events.EventError:
			p.Send(StreamCompletionError{
				StreamMetadata: metadata,
				Err:            e_.ErrorString,
			})
		case *events.EventConversation:
			p.Send(ConversationChangedMsg{
				Action: e_.Action,
				Name:   e_.Name,
			})
		default:
			log.Warn().Str("type", string(e.Type())).Msg("unhandled event type")
		}

		return nil
	}
}
