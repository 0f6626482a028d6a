package openai

import (
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// MakeCompletionRequest turns the message history into a streaming chat completion
// request for model. A configured system prompt is rendered and sent first.
func MakeCompletionRequest(
	s *settings.StepSettings,
	history conversation.Messages,
	model string,
) (*go_openai.ChatCompletionRequest, error) {
	if s.Chat == nil {
		return nil, errors.New("no chat settings")
	}
	if model == "" {
		return nil, errors.New("no model specified")
	}

	msgs := make([]go_openai.ChatCompletionMessage, 0, len(history)+1)

	if s.Chat.SystemPrompt != "" {
		prompt, err := steps.RenderTemplate(s.Chat.SystemPrompt, map[string]interface{}{
			"Model": model,
			"Now":   time.Now(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "could not render system prompt")
		}
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: prompt,
		})
	}

	for i, m := range history {
		msg, err := messageToOpenAIMessage(m)
		if err != nil {
			return nil, errors.Wrapf(err, "message %d", i)
		}
		msgs = append(msgs, msg)
	}

	req := &go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Stream:   s.Chat.Stream,
	}
	if s.Chat.MaxResponseTokens != nil {
		req.MaxTokens = *s.Chat.MaxResponseTokens
	}
	if s.Chat.Temperature != nil {
		req.Temperature = float32(*s.Chat.Temperature)
	}
	if s.Chat.TopP != nil {
		req.TopP = float32(*s.Chat.TopP)
	}
	if len(s.Chat.Stop) > 0 {
		req.Stop = s.Chat.Stop
	}
	if s.OpenAI != nil {
		if s.OpenAI.N != nil {
			req.N = *s.OpenAI.N
		}
		if s.OpenAI.PresencePenalty != nil {
			req.PresencePenalty = float32(*s.OpenAI.PresencePenalty)
		}
		if s.OpenAI.FrequencyPenalty != nil {
			req.FrequencyPenalty = float32(*s.OpenAI.FrequencyPenalty)
		}
	}

	log.Debug().
		Str("model", model).
		Int("messages", len(msgs)).
		Bool("system_prompt", s.Chat.SystemPrompt != "").
		Msg("built chat completion request")

	return req, nil
}

func messageToOpenAIMessage(m *conversation.Message) (go_openai.ChatCompletionMessage, error) {
	if m == nil {
		return go_openai.ChatCompletionMessage{}, errors.New("nil message")
	}

	role := ""
	switch m.Role {
	case conversation.RoleUser:
		role = go_openai.ChatMessageRoleUser
	case conversation.RoleAssistant:
		role = go_openai.ChatMessageRoleAssistant
	default:
		return go_openai.ChatCompletionMessage{}, errors.Errorf("unknown role %q", m.Role)
	}

	switch c := m.Content.(type) {
	case *conversation.TextContent:
		return go_openai.ChatCompletionMessage{Role: role, Content: c.Text}, nil

	case *conversation.PartsContent:
		parts := make([]go_openai.ChatMessagePart, 0, len(c.Parts))
		for _, part := range c.Parts {
			switch p := part.(type) {
			case *conversation.TextPart:
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			case *conversation.ImagePart:
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeImageURL,
					ImageURL: &go_openai.ChatMessageImageURL{
						URL:    p.Image.URL(),
						Detail: imageDetail(p.Image.Detail),
					},
				})
			}
		}
		return go_openai.ChatCompletionMessage{Role: role, MultiContent: parts}, nil

	default:
		return go_openai.ChatCompletionMessage{}, errors.New("message has no content")
	}
}

func imageDetail(d conversation.ImageDetail) go_openai.ImageURLDetail {
	switch d {
	case conversation.ImageDetailLow:
		return go_openai.ImageURLDetailLow
	case conversation.ImageDetailHigh:
		return go_openai.ImageURLDetailHigh
	default:
		return go_openai.ImageURLDetailAuto
	}
}
