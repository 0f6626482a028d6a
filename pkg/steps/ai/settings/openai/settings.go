package openai

import (
	"github.com/huandu/go-clone"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Settings struct {
	// APIKey is the bearer token sent with every request
	APIKey *string `yaml:"api_key,omitempty"`
	// BaseURL allows pointing the client at an OpenAI compatible server
	BaseURL *string `yaml:"base_url,omitempty"`
	// How many choice to create for each prompt. Only the first choice is streamed.
	N *int `yaml:"n,omitempty"`
	// PresencePenalty to use
	PresencePenalty *float64 `yaml:"presence_penalty,omitempty"`
	// FrequencyPenalty to use
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty"`
}

func NewSettings() *Settings {
	baseURL := DefaultBaseURL
	return &Settings{
		BaseURL: &baseURL,
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// HasAPIKey reports whether a non-empty key is set.
func (s *Settings) HasAPIKey() bool {
	return s.APIKey != nil && *s.APIKey != ""
}

const OpenAiChatSlug = "openai-chat"
