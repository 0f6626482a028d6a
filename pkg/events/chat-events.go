package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeError             EventType = "error"

	// EventTypeConversation is published when the set of conversations or the current
	// conversation changes.
	EventTypeConversation EventType = "conversation"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

var _ Event = &EventImpl{}

type EventPartialCompletionStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventPartialCompletionStart {
	return &EventPartialCompletionStart{
		EventImpl: EventImpl{
			Type_:     EventTypeStart,
			Metadata_: metadata,
		},
	}
}

var _ Event = &EventPartialCompletionStart{}

// EventPartialCompletion carries one fragment of a streamed reply.
type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the text so far, including the trailing cursor glyph
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{
			Type_:     EventTypePartialCompletion,
			Metadata_: metadata,
		},
		Delta:      delta,
		Completion: completion,
	}
}

var _ Event = &EventPartialCompletion{}

// EventFinal carries the persisted assistant text, without the cursor glyph.
type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{
			Type_:     EventTypeFinal,
			Metadata_: metadata,
		},
		Text: text,
	}
}

var _ Event = &EventFinal{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl: EventImpl{
			Type_:     EventTypeError,
			Metadata_: metadata,
		},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

type ConversationAction string

const (
	ConversationActionNew    ConversationAction = "new"
	ConversationActionSwitch ConversationAction = "switch"
	ConversationActionReset  ConversationAction = "reset"
)

type EventConversation struct {
	EventImpl
	Action ConversationAction `json:"action"`
	Name   string             `json:"name"`
}

func NewConversationEvent(metadata EventMetadata, action ConversationAction, name string) *EventConversation {
	return &EventConversation{
		EventImpl: EventImpl{
			Type_:     EventTypeConversation,
			Metadata_: metadata,
		},
		Action: action,
		Name:   name,
	}
}

var _ Event = &EventConversation{}

// EventMetadata is passed along with every event of a turn.
type EventMetadata struct {
	LLMInferenceData
	ID           uuid.UUID `json:"message_id" yaml:"message_id"`
	Conversation string    `json:"conversation,omitempty" yaml:"conversation,omitempty"`
	TurnID       string    `json:"turn_id,omitempty" yaml:"turn_id,omitempty"`
}

func NewEventMetadata(conversation string, turnID string) EventMetadata {
	return EventMetadata{
		ID:           uuid.New(),
		Conversation: conversation,
		TurnID:       turnID,
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.Conversation != "" {
		e.Str("conversation", em.Conversation)
	}
	if em.TurnID != "" {
		e.Str("turn_id", em.TurnID)
	}
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	err := json.Unmarshal(b, &e)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode event")
	}
	if e == nil {
		return nil, errors.New("empty event")
	}

	e.payload = b

	switch e.Type_ {
	case EventTypeStart:
		return decodeTyped[EventPartialCompletionStart](e)
	case EventTypePartialCompletion:
		return decodeTyped[EventPartialCompletion](e)
	case EventTypeFinal:
		return decodeTyped[EventFinal](e)
	case EventTypeError:
		return decodeTyped[EventError](e)
	case EventTypeConversation:
		return decodeTyped[EventConversation](e)
	}

	return e, nil
}

type payloadSetter interface {
	setPayload(b []byte)
}

func (e *EventImpl) setPayload(b []byte) {
	e.payload = b
}

func decodeTyped[T any](e Event) (Event, error) {
	ret, ok := ToTypedEvent[T](e)
	if !ok {
		return nil, errors.Errorf("could not cast event to %s", e.Type())
	}
	ev, ok := any(ret).(Event)
	if !ok {
		return nil, errors.Errorf("%s is not an event", e.Type())
	}
	if s, ok := ev.(payloadSetter); ok {
		s.setPayload(e.Payload())
	}
	return ev, nil
}

func ToTypedEvent[T any](e Event) (*T, bool) {
	var ret *T
	err := json.Unmarshal(e.Payload(), &ret)
	if err != nil || ret == nil {
		return nil, false
	}

	return ret, true
}
