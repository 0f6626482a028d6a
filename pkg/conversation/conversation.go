package conversation

import (
	"github.com/google/uuid"
)

// Conversation is a named, ordered sequence of messages plus a running token estimate.
type Conversation struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Messages   Messages  `json:"messages" yaml:"messages"`
	TokenCount int       `json:"token_count" yaml:"token_count"`
}

func NewConversation(name string) *Conversation {
	return &Conversation{
		ID:   uuid.New(),
		Name: name,
	}
}

// Clone copies the message slice. Messages themselves are shared, they are never
// modified after being appended.
func (c *Conversation) Clone() *Conversation {
	ret := *c
	ret.Messages = append(Messages(nil), c.Messages...)
	return &ret
}

func (c *Conversation) Len() int {
	return len(c.Messages)
}

func (c *Conversation) Last() (*Message, bool) {
	if len(c.Messages) == 0 {
		return nil, false
	}
	return c.Messages[len(c.Messages)-1], true
}
