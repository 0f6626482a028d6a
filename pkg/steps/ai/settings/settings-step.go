package settings

import (
	"io"
	"strings"

	"github.com/go-go-golems/parley/pkg/security"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings/openai"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSetting = errors.New("invalid setting")

type factoryConfigFileWrapper struct {
	Factories *StepSettings
}

type StepSettings struct {
	Chat   *ChatSettings    `yaml:"chat,omitempty"`
	OpenAI *openai.Settings `yaml:"openai,omitempty"`
	Client *ClientSettings  `yaml:"client,omitempty"`
}

func NewStepSettings() *StepSettings {
	return &StepSettings{
		Chat:   NewChatSettings(),
		OpenAI: openai.NewSettings(),
		Client: NewClientSettings(),
	}
}

func NewStepSettingsFromYAML(s io.Reader) (*StepSettings, error) {
	settings_ := factoryConfigFileWrapper{
		Factories: NewStepSettings(),
	}
	if err := yaml.NewDecoder(s).Decode(&settings_); err != nil {
		return nil, errors.Wrap(err, "could not decode step settings")
	}

	return settings_.Factories, nil
}

func (ss *StepSettings) GetMetadata() map[string]interface{} {
	metadata := make(map[string]interface{})

	if ss.Chat != nil {
		metadata["ai-model"] = ss.Chat.Model
		metadata["ai-vision-model"] = ss.Chat.VisionModel
		if ss.Chat.MaxResponseTokens != nil {
			metadata["ai-max-response-tokens"] = *ss.Chat.MaxResponseTokens
		}
		if ss.Chat.TopP != nil && *ss.Chat.TopP != 1 {
			metadata["ai-top-p"] = *ss.Chat.TopP
		}
		if ss.Chat.Temperature != nil {
			metadata["ai-temperature"] = *ss.Chat.Temperature
		}
		if len(ss.Chat.Stop) > 0 {
			metadata["ai-stop"] = ss.Chat.Stop
		}
		metadata["ai-stream"] = ss.Chat.Stream
	}

	if ss.OpenAI != nil {
		if ss.OpenAI.N != nil && *ss.OpenAI.N != 1 {
			metadata["openai-n"] = *ss.OpenAI.N
		}
		if ss.OpenAI.PresencePenalty != nil && *ss.OpenAI.PresencePenalty != 0 {
			metadata["openai-presence-penalty"] = *ss.OpenAI.PresencePenalty
		}
		if ss.OpenAI.FrequencyPenalty != nil && *ss.OpenAI.FrequencyPenalty != 0 {
			metadata["openai-frequency-penalty"] = *ss.OpenAI.FrequencyPenalty
		}
		if ss.OpenAI.BaseURL != nil {
			metadata["openai-base-url"] = *ss.OpenAI.BaseURL
		}
		// the api key is never part of the metadata
	}

	if ss.Client != nil {
		if ss.Client.Timeout != nil {
			metadata["timeout"] = ss.Client.Timeout.String()
		}
		if ss.Client.Organization != nil && *ss.Client.Organization != "" {
			metadata["organization"] = *ss.Client.Organization
		}
		if ss.Client.UserAgent != nil {
			metadata["user-agent"] = *ss.Client.UserAgent
		}
	}

	return metadata
}

// UpdateFromViper copies every key that is set in v (flags, PARLEY_* environment
// variables, config file) into the settings.
func (ss *StepSettings) UpdateFromViper(v *viper.Viper) error {
	if v.IsSet("ai-model") {
		ss.Chat.Model = v.GetString("ai-model")
	}
	if v.IsSet("ai-vision-model") {
		ss.Chat.VisionModel = v.GetString("ai-vision-model")
	}
	if v.IsSet("ai-temperature") {
		t := v.GetFloat64("ai-temperature")
		ss.Chat.Temperature = &t
	}
	if v.IsSet("ai-top-p") {
		p := v.GetFloat64("ai-top-p")
		ss.Chat.TopP = &p
	}
	if v.IsSet("ai-max-response-tokens") {
		n := v.GetInt("ai-max-response-tokens")
		ss.Chat.MaxResponseTokens = &n
	}
	if v.IsSet("ai-stop") {
		ss.Chat.Stop = v.GetStringSlice("ai-stop")
	}
	if v.IsSet("ai-stream") {
		ss.Chat.Stream = v.GetBool("ai-stream")
	}
	if v.IsSet("ai-system-prompt") {
		ss.Chat.SystemPrompt = v.GetString("ai-system-prompt")
	}

	if v.IsSet("openai-api-key") {
		key := strings.TrimSpace(v.GetString("openai-api-key"))
		if key != "" {
			ss.OpenAI.APIKey = &key
		}
	}
	if v.IsSet("openai-base-url") {
		u := v.GetString("openai-base-url")
		ss.OpenAI.BaseURL = &u
	}

	if v.IsSet("ai-timeout") {
		ss.Client.SetTimeoutSeconds(v.GetInt("ai-timeout"))
	}
	if v.IsSet("openai-organization") {
		o := v.GetString("openai-organization")
		ss.Client.Organization = &o
	}

	return ss.Validate()
}

// Validate reports every invalid value at once. A missing API key is not checked
// here, see cmds.LoadAPIKey.
func (ss *StepSettings) Validate() error {
	var result error

	if ss.Chat == nil || ss.OpenAI == nil || ss.Client == nil {
		return errors.Wrap(ErrInvalidSetting, "incomplete step settings")
	}

	if ss.Chat.Temperature != nil && (*ss.Chat.Temperature < 0 || *ss.Chat.Temperature > 2) {
		result = multierror.Append(result,
			errors.Wrapf(ErrInvalidSetting, "ai-temperature %v is outside [0, 2]", *ss.Chat.Temperature))
	}
	if ss.Chat.TopP != nil && (*ss.Chat.TopP < 0 || *ss.Chat.TopP > 1) {
		result = multierror.Append(result,
			errors.Wrapf(ErrInvalidSetting, "ai-top-p %v is outside [0, 1]", *ss.Chat.TopP))
	}
	if ss.Chat.MaxResponseTokens != nil && *ss.Chat.MaxResponseTokens <= 0 {
		result = multierror.Append(result,
			errors.Wrapf(ErrInvalidSetting, "ai-max-response-tokens must be positive, got %d", *ss.Chat.MaxResponseTokens))
	}
	if ss.Client.TimeoutSeconds != nil && *ss.Client.TimeoutSeconds < 0 {
		result = multierror.Append(result,
			errors.Wrapf(ErrInvalidSetting, "ai-timeout must not be negative, got %d", *ss.Client.TimeoutSeconds))
	}
	if ss.OpenAI.BaseURL != nil && *ss.OpenAI.BaseURL != "" {
		if err := security.ValidateURL(*ss.OpenAI.BaseURL, security.APIBaseURLOptions); err != nil {
			result = multierror.Append(result,
				errors.Wrapf(ErrInvalidSetting, "openai-base-url: %v", err))
		}
	}

	return result
}

func (s *StepSettings) Clone() *StepSettings {
	return &StepSettings{
		Chat:   s.Chat.Clone(),
		OpenAI: s.OpenAI.Clone(),
		Client: s.Client.Clone(),
	}
}
