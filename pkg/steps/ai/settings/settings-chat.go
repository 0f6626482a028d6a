package settings

import (
	"github.com/huandu/go-clone"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultVisionModel = "gpt-4o"
)

type ChatSettings struct {
	// Model is used for turns without images
	Model string `yaml:"model,omitempty"`
	// VisionModel is used when the outgoing turn attaches an image
	VisionModel       string   `yaml:"vision_model,omitempty"`
	MaxResponseTokens *int     `yaml:"max_response_tokens,omitempty"`
	TopP              *float64 `yaml:"top_p,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	Stop              []string `yaml:"stop,omitempty"`
	Stream            bool     `yaml:"stream,omitempty"`

	// SystemPrompt is a text/template rendered for every request. It is never stored
	// in a conversation.
	SystemPrompt string `yaml:"system_prompt,omitempty"`
}

func NewChatSettings() *ChatSettings {
	return &ChatSettings{
		Model:       DefaultModel,
		VisionModel: DefaultVisionModel,
		Stop:        []string{},
		Stream:      true,
	}
}

// SelectModel returns the vision model if the outgoing turn attaches an image, and
// the text model otherwise.
func (s *ChatSettings) SelectModel(hasImage bool) string {
	if hasImage {
		if s.VisionModel != "" {
			return s.VisionModel
		}
		return DefaultVisionModel
	}
	if s.Model != "" {
		return s.Model
	}
	return DefaultModel
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

const AiChatSlug = "ai-chat"
