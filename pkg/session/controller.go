package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/helpers"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Responder produces the reply to a conversation history as a stream of fragments.
type Responder interface {
	SelectModel(hasImage bool) string
	Respond(ctx context.Context, history conversation.Messages, model string) (steps.FragmentStream, error)
}

// Controller ties user input, the conversation store and a Responder together. It runs
// one turn at a time. Store mutations are rejected while a turn is streaming, reads
// are always allowed.
type Controller struct {
	responder        Responder
	store            *conversation.Store
	counter          *tokens.Counter
	publisherManager *events.PublisherManager
	policy           RollbackPolicy
	onStateChange    func(TurnState)

	mu      sync.Mutex
	state   TurnState
	running bool
}

type ControllerOption func(*Controller)

func WithStore(store *conversation.Store) ControllerOption {
	return func(c *Controller) {
		c.store = store
	}
}

func WithCounter(counter *tokens.Counter) ControllerOption {
	return func(c *Controller) {
		c.counter = counter
	}
}

func WithPublisherManager(pm *events.PublisherManager) ControllerOption {
	return func(c *Controller) {
		c.publisherManager = pm
	}
}

func WithRollbackPolicy(policy RollbackPolicy) ControllerOption {
	return func(c *Controller) {
		c.policy = policy
	}
}

// WithStateObserver registers f to be called on every turn state transition. f is
// called with the controller lock held and must not call back into the controller.
func WithStateObserver(f func(TurnState)) ControllerOption {
	return func(c *Controller) {
		c.onStateChange = f
	}
}

func NewController(responder Responder, options ...ControllerOption) (*Controller, error) {
	if responder == nil {
		return nil, errors.New("no responder")
	}

	ret := &Controller{
		responder: responder,
		policy:    RollbackTurn,
		state:     StateIdle,
	}
	for _, o := range options {
		o(ret)
	}

	if ret.store == nil {
		ret.store = conversation.NewStore()
	}
	if ret.counter == nil {
		ret.counter = tokens.NewCounter("")
	}
	if ret.publisherManager == nil {
		ret.publisherManager = events.NewPublisherManager()
	}

	return ret, nil
}

// setState must be called with c.mu held.
func (c *Controller) setState(s TurnState) {
	log.Trace().Str("from", c.state.String()).Str("to", s.String()).Msg("turn state")
	c.state = s
	if c.onStateChange != nil {
		c.onStateChange(s)
	}
}

func (c *Controller) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) RollbackPolicy() RollbackPolicy {
	return c.policy
}

// SubmitTurn appends a user message built from text and image to the current
// conversation, streams the reply and appends it as an assistant message.
//
// If the remote request fails, no assistant message is appended, the user message is
// handled according to the rollback policy and the *steps.RemoteRequestError is
// returned.
func (c *Controller) SubmitTurn(ctx context.Context, text string, image *conversation.ImageContent) (*conversation.Message, error) {
	if strings.TrimSpace(text) == "" && image == nil {
		return nil, ErrEmptyTurn
	}

	var userMessage *conversation.Message
	if image != nil {
		userMessage = conversation.NewMessage(conversation.RoleUser, conversation.NewPartsContent(text, image))
	} else {
		userMessage = conversation.NewTextMessage(conversation.RoleUser, text)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	preTurnLen := c.store.Current().Len()
	if err := c.store.AppendMessage(userMessage); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.running = true
	c.setState(StateUserMessageAppended)
	current := c.store.Current()
	c.mu.Unlock()

	turnID := helpers.NewCorrelationID()
	ctx = helpers.ContextWithCorrelationID(ctx, turnID)
	model := c.responder.SelectModel(image != nil)

	metadata := events.NewEventMetadata(current.Name, turnID)
	metadata.Model = model

	log.Debug().
		Str("conversation", current.Name).
		Str("turn_id", turnID).
		Str("model", model).
		Int("history", current.Len()).
		Msg("submitting turn")

	c.publisherManager.PublishBlind(ctx, events.NewStartEvent(metadata))

	startTime := time.Now()
	acc := &Accumulator{}
	err := c.stream(ctx, current.Messages, model, metadata, acc)
	durationMs := time.Since(startTime).Milliseconds()
	metadata.DurationMs = &durationMs

	if err != nil {
		c.fail(preTurnLen)
		log.Debug().Err(err).Str("turn_id", turnID).Int("fragments", acc.Fragments()).Msg("turn failed")
		c.publisherManager.PublishBlind(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}

	assistantMessage := conversation.NewTextMessage(conversation.RoleAssistant, acc.Final())
	usage := &events.Usage{
		InputTokens:  c.counter.CountMessage(userMessage),
		OutputTokens: c.counter.CountMessage(assistantMessage),
	}
	metadata.Usage = usage

	c.mu.Lock()
	err = c.store.AppendMessage(assistantMessage)
	if err != nil {
		c.mu.Unlock()
		c.fail(preTurnLen)
		c.publisherManager.PublishBlind(ctx, events.NewErrorEvent(metadata, err))
		return nil, err
	}
	c.store.AddTokens(usage.InputTokens + usage.OutputTokens)
	c.setState(StateCompleted)
	c.setState(StateIdle)
	c.running = false
	c.mu.Unlock()

	c.publisherManager.PublishBlind(ctx, events.NewFinalEvent(metadata, assistantMessage.Text()))

	return assistantMessage, nil
}

// stream pulls fragments until the end of the stream. Errors are always returned as
// *steps.RemoteRequestError.
func (c *Controller) stream(
	ctx context.Context,
	history conversation.Messages,
	model string,
	metadata events.EventMetadata,
	acc *Accumulator,
) error {
	c.mu.Lock()
	c.setState(StateStreaming)
	c.mu.Unlock()

	stream, err := c.responder.Respond(ctx, history, model)
	if err != nil {
		return asRemoteRequestError(model, err)
	}
	defer func() {
		_ = stream.Close()
	}()

	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return asRemoteRequestError(model, err)
		}
		acc.Append(fragment)
		c.publisherManager.PublishBlind(ctx, events.NewPartialCompletionEvent(metadata, fragment, acc.Display()))
	}
}

func asRemoteRequestError(model string, err error) error {
	if steps.IsRemoteRequestError(err) {
		return err
	}
	return steps.NewRemoteRequestError(model, err)
}

// fail rolls the current conversation back according to the policy.
func (c *Controller) fail(preTurnLen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setState(StateFailed)
	if c.policy == RollbackTurn {
		if err := c.store.TruncateCurrent(preTurnLen); err != nil {
			log.Error().Err(err).Msg("could not roll back failed turn")
		}
	}
	c.setState(StateIdle)
	c.running = false
}

// lockIdle takes the lock if no turn is running.
func (c *Controller) lockIdle() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrTurnInProgress
	}
	return nil
}

// NewConversation creates a conversation and makes it current. An empty name picks
// the next free "conversation N".
func (c *Controller) NewConversation(ctx context.Context, name string) (string, error) {
	if err := c.lockIdle(); err != nil {
		return "", err
	}
	if name == "" {
		name = c.store.NextName()
	}
	_, err := c.store.CreateConversation(name)
	if err == nil {
		err = c.store.SwitchCurrent(name)
	}
	c.mu.Unlock()
	if err != nil {
		return "", err
	}

	c.publisherManager.PublishBlind(ctx,
		events.NewConversationEvent(events.NewEventMetadata(name, ""), events.ConversationActionNew, name))
	return name, nil
}

func (c *Controller) SelectConversation(ctx context.Context, name string) error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	err := c.store.SwitchCurrent(name)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.publisherManager.PublishBlind(ctx,
		events.NewConversationEvent(events.NewEventMetadata(name, ""), events.ConversationActionSwitch, name))
	return nil
}

func (c *Controller) ResetConversation(ctx context.Context) error {
	if err := c.lockIdle(); err != nil {
		return err
	}
	c.store.ResetCurrent()
	name := c.store.CurrentName()
	c.mu.Unlock()

	c.publisherManager.PublishBlind(ctx,
		events.NewConversationEvent(events.NewEventMetadata(name, ""), events.ConversationActionReset, name))
	return nil
}

// Search looks for query in the text messages of the current conversation.
func (c *Controller) Search(query string) []conversation.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Search(query)
}

// Current returns a snapshot of the current conversation.
func (c *Controller) Current() *conversation.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Current()
}

func (c *Controller) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Names()
}

// Export writes a transcript of the current conversation to filename.
func (c *Controller) Export(filename string) error {
	return conversation.SaveToFile(c.Current(), filename)
}
