package session

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/chat"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleText struct {
	Role conversation.Role
	Text string
}

func snapshot(c *conversation.Conversation) []roleText {
	ret := []roleText{}
	for _, m := range c.Messages {
		ret = append(ret, roleText{m.Role, m.Text()})
	}
	return ret
}

func TestSubmitTurn_HelloEndToEnd(t *testing.T) {
	m := chat.NewMockResponder(chat.MockReply{Fragments: []string{"He", "llo", "!"}})
	var states []TurnState
	c, err := NewController(m, WithStateObserver(func(s TurnState) {
		states = append(states, s)
	}))
	require.NoError(t, err)

	reply, err := c.SubmitTurn(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, conversation.RoleAssistant, reply.Role)
	assert.Equal(t, "Hello!", reply.Text())

	assert.Equal(t, []roleText{
		{conversation.RoleUser, "hi"},
		{conversation.RoleAssistant, "Hello!"},
	}, snapshot(c.Current()))
	assert.Greater(t, c.Current().TokenCount, 0)

	assert.Equal(t, []TurnState{
		StateUserMessageAppended,
		StateStreaming,
		StateCompleted,
		StateIdle,
	}, states)
	assert.Equal(t, StateIdle, c.State())

	require.Len(t, m.Histories, 1)
	require.Len(t, m.Histories[0], 1)
	assert.Equal(t, "hi", m.Histories[0][0].Text())
	assert.Equal(t, "mock", m.Models[0])
}

func TestSubmitTurn_TwoConversations(t *testing.T) {
	m := chat.NewMockResponder(
		chat.MockReply{Fragments: []string{"A1"}},
		chat.MockReply{Fragments: []string{"B1"}},
		chat.MockReply{Fragments: []string{"A2"}},
	)
	c, err := NewController(m)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.SubmitTurn(ctx, "a", nil)
	require.NoError(t, err)

	name, err := c.NewConversation(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "conversation 2", name)
	assert.Equal(t, 0, c.Current().Len())

	_, err = c.SubmitTurn(ctx, "b", nil)
	require.NoError(t, err)

	require.NoError(t, c.SelectConversation(ctx, "conversation 1"))
	_, err = c.SubmitTurn(ctx, "a again", nil)
	require.NoError(t, err)

	assert.Equal(t, []roleText{
		{conversation.RoleUser, "a"},
		{conversation.RoleAssistant, "A1"},
		{conversation.RoleUser, "a again"},
		{conversation.RoleAssistant, "A2"},
	}, snapshot(c.Current()))

	// the third request only saw the history of conversation 1
	require.Len(t, m.Histories[2], 3)
	assert.Equal(t, "a", m.Histories[2][0].Text())

	require.NoError(t, c.SelectConversation(ctx, "conversation 2"))
	assert.Equal(t, []roleText{
		{conversation.RoleUser, "b"},
		{conversation.RoleAssistant, "B1"},
	}, snapshot(c.Current()))
	assert.Equal(t, []string{"conversation 1", "conversation 2"}, c.Names())
}

func TestSubmitTurn_RollbackAcrossRepeatedFailures(t *testing.T) {
	boom := errors.New("connection reset")

	for _, tc := range []struct {
		name   string
		policy RollbackPolicy
		reply  chat.MockReply
	}{
		{"rollback before first fragment", RollbackTurn, chat.MockReply{StartErr: boom}},
		{"rollback mid-stream", RollbackTurn, chat.MockReply{Fragments: []string{"par", "tial"}, Err: boom}},
		{"keep before first fragment", KeepUserMessage, chat.MockReply{StartErr: boom}},
		{"keep mid-stream", KeepUserMessage, chat.MockReply{Fragments: []string{"par", "tial"}, Err: boom}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := chat.NewMockResponder(chat.MockReply{Fragments: []string{"ok"}}, tc.reply)
			c, err := NewController(m, WithRollbackPolicy(tc.policy))
			require.NoError(t, err)
			ctx := context.Background()

			_, err = c.SubmitTurn(ctx, "first", nil)
			require.NoError(t, err)
			before := c.Current()

			for i := 0; i < 3; i++ {
				// the mock alternates, so skip the successful reply in between
				if i > 0 {
					_, err = c.SubmitTurn(ctx, "filler", nil)
					require.NoError(t, err)
					require.NoError(t, c.store.TruncateCurrent(before.Len()))
				}

				tokensBefore := c.Current().TokenCount
				_, err = c.SubmitTurn(ctx, "doomed", nil)
				require.Error(t, err)
				var rre *steps.RemoteRequestError
				require.True(t, errors.As(err, &rre))
				assert.True(t, errors.Is(err, boom))
				assert.Equal(t, StateIdle, c.State())

				after := c.Current()
				assert.Equal(t, tokensBefore, after.TokenCount)
				for _, msg := range after.Messages {
					assert.NotEqual(t, "partial", msg.Text(), "no partial assistant message is persisted")
				}

				switch tc.policy {
				case RollbackTurn:
					assert.Equal(t, snapshot(before), snapshot(after))
				case KeepUserMessage:
					require.Equal(t, before.Len()+1, after.Len())
					last, _ := after.Last()
					assert.Equal(t, conversation.RoleUser, last.Role)
					assert.Equal(t, "doomed", last.Text())
					require.NoError(t, c.store.TruncateCurrent(before.Len()))
				}
			}
		})
	}
}

func TestSubmitTurn_EmptyTurn(t *testing.T) {
	m := chat.NewMockResponder()
	c, err := NewController(m)
	require.NoError(t, err)

	_, err = c.SubmitTurn(context.Background(), "  ", nil)
	require.True(t, errors.Is(err, ErrEmptyTurn))
	assert.Equal(t, 0, c.Current().Len())
	assert.Equal(t, 0, m.Calls())
}

func TestSubmitTurn_ImageSelectsVisionModel(t *testing.T) {
	m := chat.NewMockResponder(chat.MockReply{Fragments: []string{"a cat"}})
	c, err := NewController(m)
	require.NoError(t, err)

	img := &conversation.ImageContent{ImageContent: []byte{1, 2}, MediaType: "image/png", ImageName: "cat.png"}
	_, err = c.SubmitTurn(context.Background(), "", img)
	require.NoError(t, err)

	assert.Equal(t, []string{"mock-vision"}, m.Models)
	first := c.Current().Messages[0]
	assert.True(t, first.HasImage())
	_, hasText := first.Content.(*conversation.PartsContent).Text()
	assert.False(t, hasText)

	// the next turn has no image and goes back to the text model
	_, err = c.SubmitTurn(context.Background(), "and now?", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-vision", "mock"}, m.Models)
}

func TestSubmitTurn_CursorGlyphIsStripped(t *testing.T) {
	m := chat.NewMockResponder(chat.MockReply{Fragments: []string{"Hi", CursorGlyph}})
	c, err := NewController(m)
	require.NoError(t, err)

	reply, err := c.SubmitTurn(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", reply.Text())
}

// blockingResponder hands out a stream that waits until release is closed.
type blockingResponder struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingResponder) SelectModel(bool) string { return "blocking" }

func (b *blockingResponder) Respond(ctx context.Context, history conversation.Messages, model string) (steps.FragmentStream, error) {
	close(b.started)
	<-b.release
	return steps.NewSliceStream([]string{"done"}, nil), nil
}

func TestController_RejectsMutationsWhileStreaming(t *testing.T) {
	b := &blockingResponder{started: make(chan struct{}), release: make(chan struct{})}
	c, err := NewController(b)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := c.SubmitTurn(ctx, "slow", nil)
		assert.NoError(t, err)
	}()
	<-b.started

	assert.Equal(t, StateStreaming, c.State())

	_, err = c.SubmitTurn(ctx, "second", nil)
	assert.True(t, errors.Is(err, ErrTurnInProgress))
	_, err = c.NewConversation(ctx, "")
	assert.True(t, errors.Is(err, ErrTurnInProgress))
	assert.True(t, errors.Is(c.SelectConversation(ctx, "conversation 1"), ErrTurnInProgress))
	assert.True(t, errors.Is(c.ResetConversation(ctx), ErrTurnInProgress))

	// reads still work
	assert.Len(t, c.Search("slow"), 1)

	close(b.release)
	wg.Wait()

	assert.Equal(t, []roleText{
		{conversation.RoleUser, "slow"},
		{conversation.RoleAssistant, "done"},
	}, snapshot(c.Current()))
}

func TestController_ConversationOps(t *testing.T) {
	m := chat.NewMockResponder(chat.MockReply{Fragments: []string{"hello world"}})
	c, err := NewController(m)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.SubmitTurn(ctx, "say hello", nil)
	require.NoError(t, err)

	res := c.Search("HELLO")
	require.Len(t, res, 2)
	assert.Equal(t, 0, res[0].Index)
	assert.Equal(t, 1, res[1].Index)

	_, err = c.NewConversation(ctx, "conversation 1")
	assert.True(t, errors.Is(err, conversation.ErrDuplicateName))
	assert.True(t, errors.Is(c.SelectConversation(ctx, "nope"), conversation.ErrNotFound))

	require.NoError(t, c.ResetConversation(ctx))
	assert.Equal(t, 0, c.Current().Len())
	assert.Equal(t, 0, c.Current().TokenCount)
	assert.Empty(t, c.Search("hello"))
}

func TestSubmitTurn_PublishesEvents(t *testing.T) {
	pm := events.NewPublisherManager()
	rec := &eventRecorder{}
	pm.RegisterPublisher(events.ChatTopic, rec)

	m := chat.NewMockResponder(
		chat.MockReply{Fragments: []string{"He", "llo"}},
		chat.MockReply{StartErr: errors.New("boom")},
	)
	c, err := NewController(m, WithPublisherManager(pm))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.SubmitTurn(ctx, "hi", nil)
	require.NoError(t, err)
	_, err = c.SubmitTurn(ctx, "again", nil)
	require.Error(t, err)
	_, err = c.NewConversation(ctx, "work")
	require.NoError(t, err)

	types := []events.EventType{}
	for _, e := range rec.events {
		types = append(types, e.Type())
	}
	assert.Equal(t, []events.EventType{
		events.EventTypeStart,
		events.EventTypePartialCompletion,
		events.EventTypePartialCompletion,
		events.EventTypeFinal,
		events.EventTypeStart,
		events.EventTypeError,
		events.EventTypeConversation,
	}, types)

	partial := rec.events[2].(*events.EventPartialCompletion)
	assert.Equal(t, "llo", partial.Delta)
	assert.Equal(t, "Hello"+CursorGlyph, partial.Completion)

	final := rec.events[3].(*events.EventFinal)
	assert.Equal(t, "Hello", final.Text)
	require.NotNil(t, final.Metadata().Usage)
	assert.Equal(t, "mock", final.Metadata().Model)
	assert.Equal(t, "conversation 1", final.Metadata().Conversation)
	assert.Equal(t, rec.events[0].Metadata().TurnID, final.Metadata().TurnID)
}

func TestAccumulator(t *testing.T) {
	a := &Accumulator{}
	assert.Equal(t, CursorGlyph, a.Display())
	assert.Equal(t, "", a.Final())

	a.Append("He")
	a.Append("llo")
	assert.Equal(t, "Hello"+CursorGlyph, a.Display())
	assert.Equal(t, "Hello", a.Final())
	assert.Equal(t, 2, a.Fragments())
}

func TestParseRollbackPolicy(t *testing.T) {
	p, err := ParseRollbackPolicy("keep")
	require.NoError(t, err)
	assert.Equal(t, KeepUserMessage, p)

	p, err = ParseRollbackPolicy(RollbackTurn.String())
	require.NoError(t, err)
	assert.Equal(t, RollbackTurn, p)

	_, err = ParseRollbackPolicy("sometimes")
	require.Error(t, err)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(topic string, messages ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range messages {
		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		r.events = append(r.events, e)
	}
	return nil
}

func (r *eventRecorder) Close() error {
	return nil
}
