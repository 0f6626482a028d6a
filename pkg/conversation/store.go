package conversation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultConversationNameFormat = "conversation %d"

// Store holds every conversation of a session and tracks which one is current.
//
// The current conversation is edited through an in-memory buffer. Switching to another
// conversation flushes the buffer back under the old name before loading the new one,
// so edits are never lost on a switch.
//
// An empty Store seeds itself with "conversation 1" on first access, which makes the
// zero value usable. Store is not safe for concurrent use.
type Store struct {
	conversations map[string]*Conversation
	order         []string

	current string
	buffer  *Conversation
}

func NewStore() *Store {
	s := &Store{}
	s.ensure()
	return s
}

func (s *Store) ensure() {
	if s.conversations != nil {
		return
	}
	s.conversations = map[string]*Conversation{}
	name := fmt.Sprintf(DefaultConversationNameFormat, 1)
	c := NewConversation(name)
	s.conversations[name] = c
	s.order = []string{name}
	s.current = name
	s.buffer = c.Clone()

	log.Trace().Str("name", name).Msg("seeded conversation store")
}

// CreateConversation inserts a new empty conversation. It does not change the
// current conversation.
func (s *Store) CreateConversation(name string) (uuid.UUID, error) {
	s.ensure()

	if strings.TrimSpace(name) == "" {
		return uuid.Nil, errors.New("conversation name is empty")
	}
	if _, ok := s.conversations[name]; ok {
		return uuid.Nil, errors.Wrapf(ErrDuplicateName, "%q", name)
	}

	c := NewConversation(name)
	s.conversations[name] = c
	s.order = append(s.order, name)

	log.Debug().Str("name", name).Str("id", c.ID.String()).Msg("created conversation")

	return c.ID, nil
}

// SwitchCurrent flushes the buffer of the current conversation and loads name.
func (s *Store) SwitchCurrent(name string) error {
	s.ensure()

	next, ok := s.conversations[name]
	if !ok {
		return errors.Wrapf(ErrNotFound, "%q", name)
	}
	if name == s.current {
		return nil
	}

	s.conversations[s.current] = s.buffer
	s.buffer = next.Clone()

	log.Debug().Str("from", s.current).Str("to", name).Msg("switched conversation")
	s.current = name

	return nil
}

// ResetCurrent clears the messages and the token count of the current conversation.
func (s *Store) ResetCurrent() {
	s.ensure()
	s.buffer.Messages = nil
	s.buffer.TokenCount = 0
}

// AppendMessage appends msg to the current conversation.
func (s *Store) AppendMessage(msg *Message) error {
	s.ensure()
	if err := msg.Validate(); err != nil {
		return err
	}
	s.buffer.Messages = append(s.buffer.Messages, msg)
	return nil
}

// TruncateCurrent drops every message of the current conversation from index n on.
// It can only shrink the conversation.
func (s *Store) TruncateCurrent(n int) error {
	s.ensure()
	if n < 0 || n > len(s.buffer.Messages) {
		return errors.Errorf("cannot truncate %d messages to %d", len(s.buffer.Messages), n)
	}
	s.buffer.Messages = s.buffer.Messages[:n:n]
	return nil
}

// AddTokens increases the token counter of the current conversation.
func (s *Store) AddTokens(n int) {
	s.ensure()
	if n <= 0 {
		return
	}
	s.buffer.TokenCount += n
}

// Current returns a snapshot of the current conversation.
func (s *Store) Current() *Conversation {
	s.ensure()
	return s.buffer.Clone()
}

func (s *Store) CurrentName() string {
	s.ensure()
	return s.current
}

// Conversation returns a snapshot of the conversation called name.
func (s *Store) Conversation(name string) (*Conversation, error) {
	s.ensure()
	if name == s.current {
		return s.buffer.Clone(), nil
	}
	c, ok := s.conversations[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return c.Clone(), nil
}

// Names returns the conversation names in creation order.
func (s *Store) Names() []string {
	s.ensure()
	return append([]string(nil), s.order...)
}

func (s *Store) Len() int {
	s.ensure()
	return len(s.order)
}

// NextName proposes a name for a new conversation, counting from the number of
// existing conversations and skipping names that are already taken.
func (s *Store) NextName() string {
	s.ensure()
	for n := len(s.order) + 1; ; n++ {
		name := fmt.Sprintf(DefaultConversationNameFormat, n)
		if _, ok := s.conversations[name]; !ok {
			return name
		}
	}
}
