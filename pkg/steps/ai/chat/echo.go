package chat

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/pkg/errors"
)

// EchoResponder streams the text of the last message back word by word. It needs no
// network access and is used by --echo.
type EchoResponder struct {
	TimePerFragment time.Duration
}

func NewEchoResponder() *EchoResponder {
	return &EchoResponder{
		TimePerFragment: 50 * time.Millisecond,
	}
}

func (e *EchoResponder) SelectModel(hasImage bool) string {
	if hasImage {
		return "echo-vision"
	}
	return "echo"
}

func (e *EchoResponder) Respond(ctx context.Context, history conversation.Messages, model string) (steps.FragmentStream, error) {
	if len(history) == 0 {
		return nil, steps.NewRemoteRequestError(model, errors.New("no input"))
	}

	last := history[len(history)-1]
	text := last.Text()
	if last.HasImage() {
		c := last.Content.(*conversation.PartsContent)
		for _, img := range c.Images() {
			text = strings.TrimSpace(text + " [image: " + img.ImageName + "]")
		}
	}

	return &echoStream{
		ctx:       ctx,
		model:     model,
		fragments: splitWords(text),
		delay:     e.TimePerFragment,
	}, nil
}

// splitWords keeps the separating whitespace attached to the following word, so that
// concatenating the fragments yields the input.
func splitWords(s string) []string {
	var ret []string
	start := 0
	for i := 1; i < len(s); i++ {
		if s[i] == ' ' && s[i-1] != ' ' {
			ret = append(ret, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		ret = append(ret, s[start:])
	}
	return ret
}

type echoStream struct {
	ctx       context.Context
	model     string
	fragments []string
	delay     time.Duration
	idx       int
}

func (s *echoStream) Recv() (string, error) {
	if s.idx >= len(s.fragments) {
		return "", io.EOF
	}
	select {
	case <-s.ctx.Done():
		return "", steps.NewRemoteRequestError(s.model, s.ctx.Err())
	case <-time.After(s.delay):
	}
	f := s.fragments[s.idx]
	s.idx++
	return f, nil
}

func (s *echoStream) Close() error {
	s.idx = len(s.fragments)
	return nil
}
