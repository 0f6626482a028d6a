package openai

import (
	"net/http"

	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	go_openai "github.com/sashabaranov/go-openai"
)

// MakeClient builds a go-openai client from the step settings. The base URL and
// organization may point the client at an OpenAI compatible server.
func MakeClient(s *settings.StepSettings) (*go_openai.Client, error) {
	if s.Client == nil {
		return nil, steps.ErrMissingClientSettings
	}
	if s.OpenAI == nil || !s.OpenAI.HasAPIKey() {
		return nil, steps.ErrMissingClientAPIKey
	}

	config := go_openai.DefaultConfig(*s.OpenAI.APIKey)
	if s.OpenAI.BaseURL != nil && *s.OpenAI.BaseURL != "" {
		config.BaseURL = *s.OpenAI.BaseURL
	}
	if s.Client.Organization != nil {
		config.OrgID = *s.Client.Organization
	}

	httpClient := s.Client.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if s.Client.Timeout != nil && httpClient.Timeout == 0 {
		c := *httpClient
		c.Timeout = *s.Client.Timeout
		httpClient = &c
	}
	config.HTTPClient = httpClient

	return go_openai.NewClientWithConfig(config), nil
}
