package openai

import (
	"context"
	"io"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// Responder sends a conversation history to the chat completion endpoint and hands the
// reply back as a FragmentStream.
type Responder struct {
	Settings *settings.StepSettings
	client   *go_openai.Client
}

type ResponderOption func(*Responder) error

// WithClient replaces the client built from the settings.
func WithClient(client *go_openai.Client) ResponderOption {
	return func(r *Responder) error {
		r.client = client
		return nil
	}
}

func NewResponder(s *settings.StepSettings, options ...ResponderOption) (*Responder, error) {
	ret := &Responder{
		Settings: s,
	}

	for _, option := range options {
		if err := option(ret); err != nil {
			return nil, err
		}
	}

	if ret.client == nil {
		client, err := MakeClient(s)
		if err != nil {
			return nil, err
		}
		ret.client = client
	}

	return ret, nil
}

// SelectModel picks the vision model when the outgoing turn carries an image.
func (r *Responder) SelectModel(hasImage bool) string {
	return r.Settings.Chat.SelectModel(hasImage)
}

// Respond issues a new request for every call. Any failure, including one that happens
// while the stream is being read, is reported as a *steps.RemoteRequestError.
func (r *Responder) Respond(ctx context.Context, history conversation.Messages, model string) (steps.FragmentStream, error) {
	req, err := MakeCompletionRequest(r.Settings, history, model)
	if err != nil {
		return nil, steps.NewRemoteRequestError(model, err)
	}

	log.Debug().Str("model", model).Int("history", len(history)).Bool("stream", req.Stream).Msg("sending chat request")

	if !req.Stream {
		resp, err := r.client.CreateChatCompletion(ctx, *req)
		if err != nil {
			return nil, steps.NewRemoteRequestError(model, err)
		}
		if len(resp.Choices) == 0 {
			return nil, steps.NewRemoteRequestError(model, errors.New("response has no choices"))
		}
		return steps.NewSliceStream([]string{resp.Choices[0].Message.Content}, nil), nil
	}

	stream, err := r.client.CreateChatCompletionStream(ctx, *req)
	if err != nil {
		return nil, steps.NewRemoteRequestError(model, err)
	}

	return &Stream{
		stream: stream,
		model:  model,
	}, nil
}

// Stream adapts a go-openai completion stream to steps.FragmentStream.
type Stream struct {
	stream *go_openai.ChatCompletionStream
	model  string
	done   bool

	FinishReason string
}

var _ steps.FragmentStream = &Stream{}

// Recv returns the next non-empty content delta. Chunks that only carry a role or a
// finish reason are skipped.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		response, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			log.Trace().Str("model", s.model).Str("finish_reason", s.FinishReason).Msg("stream finished")
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", steps.NewRemoteRequestError(s.model, err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]
		if choice.FinishReason != "" {
			s.FinishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}
		return choice.Delta.Content, nil
	}
}

func (s *Stream) Close() error {
	s.done = true
	s.stream.Close()
	return nil
}
