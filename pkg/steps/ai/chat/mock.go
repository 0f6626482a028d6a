package chat

import (
	"context"
	"sync"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/steps"
)

// MockReply is one scripted answer of a MockResponder. A non-nil StartErr fails the
// request before any fragment, Err fails it after Fragments.
type MockReply struct {
	Fragments []string
	Err       error
	StartErr  error
}

// MockResponder replays scripted replies in a round-robin fashion and records every
// request it gets.
type MockResponder struct {
	replies []MockReply
	mu      sync.Mutex
	index   int

	Histories []conversation.Messages
	Models    []string
}

func NewMockResponder(replies ...MockReply) *MockResponder {
	return &MockResponder{
		replies: replies,
	}
}

func (m *MockResponder) SelectModel(hasImage bool) string {
	if hasImage {
		return "mock-vision"
	}
	return "mock"
}

func (m *MockResponder) Respond(ctx context.Context, history conversation.Messages, model string) (steps.FragmentStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Histories = append(m.Histories, append(conversation.Messages(nil), history...))
	m.Models = append(m.Models, model)

	if len(m.replies) == 0 {
		return steps.NewSliceStream(nil, nil), nil
	}

	reply := m.replies[m.index]
	m.index = (m.index + 1) % len(m.replies)

	if reply.StartErr != nil {
		return nil, steps.NewRemoteRequestError(model, reply.StartErr)
	}
	var err error
	if reply.Err != nil {
		err = steps.NewRemoteRequestError(model, reply.Err)
	}
	return steps.NewSliceStream(reply.Fragments, err), nil
}

// Calls returns how many requests were made.
func (m *MockResponder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Models)
}
