package cmds

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"
)

// ConfigurationError is fatal. It is returned when parley cannot start because a
// setting is missing or invalid.
type ConfigurationError struct {
	Setting string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("configuration error: %s", e.Setting)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

const (
	APIKeySetting       = "openai-api-key"
	SecretsAPIKeyKey    = "general.openai_api_key"
	EnvironmentAPIKey   = "OPENAI_API_KEY"
	DefaultSecretsFile  = "secrets.toml"
	DefaultDotEnvFile   = ".env"
	APIKeyPromptMessage = "OpenAI API key"
)

type KeySource string

const (
	KeySourceViper       KeySource = "flags/env/config"
	KeySourceEnvironment KeySource = "environment"
	KeySourceSecretsFile KeySource = "secrets-file"
	KeySourceDotEnv      KeySource = "dotenv"
	KeySourcePrompt      KeySource = "prompt"
)

// APIKeyLoader looks for the OpenAI API key in a fixed order and stops at the first
// non-empty value.
type APIKeyLoader struct {
	Viper        *viper.Viper
	SecretsFiles []string
	DotEnvFiles  []string
	Getenv       func(string) string
	// Prompt is asked last. nil disables prompting.
	Prompt func() (string, error)
}

// NewAPIKeyLoader uses the default secrets and .env locations: the working directory
// and $HOME/.parley.
func NewAPIKeyLoader(v *viper.Viper) *APIKeyLoader {
	ret := &APIKeyLoader{
		Viper:        v,
		SecretsFiles: []string{DefaultSecretsFile},
		DotEnvFiles:  []string{DefaultDotEnvFile},
		Getenv:       os.Getenv,
		Prompt:       NewTerminalPrompt(os.Stdin, os.Stderr),
	}
	if home, err := os.UserHomeDir(); err == nil {
		ret.SecretsFiles = append(ret.SecretsFiles, filepath.Join(home, ".parley", DefaultSecretsFile))
		ret.DotEnvFiles = append(ret.DotEnvFiles, filepath.Join(home, ".parley", DefaultDotEnvFile))
	}
	if v != nil && v.GetString("secrets-file") != "" {
		ret.SecretsFiles = []string{v.GetString("secrets-file")}
	}
	return ret
}

func (l *APIKeyLoader) Load() (string, KeySource, error) {
	if l.Viper != nil {
		if key := strings.TrimSpace(l.Viper.GetString(APIKeySetting)); key != "" {
			return key, KeySourceViper, nil
		}
	}

	if l.Getenv != nil {
		if key := strings.TrimSpace(l.Getenv(EnvironmentAPIKey)); key != "" {
			return key, KeySourceEnvironment, nil
		}
	}

	for _, f := range l.SecretsFiles {
		key, err := readSecretsFile(f)
		if err != nil {
			return "", "", &ConfigurationError{Setting: f, Cause: err}
		}
		if key != "" {
			log.Debug().Str("file", f).Msg("loaded api key from secrets file")
			return key, KeySourceSecretsFile, nil
		}
	}

	for _, f := range l.DotEnvFiles {
		key, err := readDotEnvFile(f)
		if err != nil {
			return "", "", &ConfigurationError{Setting: f, Cause: err}
		}
		if key != "" {
			log.Debug().Str("file", f).Msg("loaded api key from .env file")
			return key, KeySourceDotEnv, nil
		}
	}

	if l.Prompt != nil {
		key, err := l.Prompt()
		if err != nil {
			return "", "", &ConfigurationError{Setting: APIKeySetting, Cause: err}
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, KeySourcePrompt, nil
		}
	}

	return "", "", &ConfigurationError{Setting: APIKeySetting, Cause: steps.ErrMissingClientAPIKey}
}

// readSecretsFile returns "" if the file does not exist.
func readSecretsFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return "", errors.Wrap(err, "could not read secrets file")
	}
	return strings.TrimSpace(v.GetString(SecretsAPIKeyKey)), nil
}

func readDotEnvFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return "", errors.Wrap(err, "could not read .env file")
	}
	for _, k := range []string{"PARLEY_OPENAI_API_KEY", EnvironmentAPIKey} {
		if key := strings.TrimSpace(values[k]); key != "" {
			return key, nil
		}
	}
	return "", nil
}

// NewTerminalPrompt returns nil if in is not a terminal.
func NewTerminalPrompt(in *os.File, out io.Writer) func() (string, error) {
	if in == nil || !(isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())) {
		return nil
	}

	return func() (string, error) {
		ui := &input.UI{
			Writer: out,
			Reader: in,
		}
		return ui.Ask(APIKeyPromptMessage, &input.Options{
			Required:  true,
			Mask:      true,
			HideOrder: true,
			Loop:      true,
		})
	}
}

// LoadStepSettings builds the settings from defaults, an optional settings YAML file
// (key "settings-file") and viper, then resolves the API key.
func LoadStepSettings(v *viper.Viper, keyLoader *APIKeyLoader) (*settings.StepSettings, error) {
	stepSettings := settings.NewStepSettings()

	if f := v.GetString("settings-file"); f != "" {
		r, err := os.Open(f)
		if err != nil {
			return nil, &ConfigurationError{Setting: "settings-file", Cause: err}
		}
		defer func() {
			_ = r.Close()
		}()
		stepSettings, err = settings.NewStepSettingsFromYAML(r)
		if err != nil {
			return nil, &ConfigurationError{Setting: "settings-file", Cause: err}
		}
	}

	if err := stepSettings.UpdateFromViper(v); err != nil {
		return nil, &ConfigurationError{Setting: "ai settings", Cause: err}
	}

	if keyLoader != nil && !stepSettings.OpenAI.HasAPIKey() {
		key, source, err := keyLoader.Load()
		if err != nil {
			return nil, err
		}
		log.Debug().Str("source", string(source)).Msg("resolved openai api key")
		stepSettings.OpenAI.APIKey = &key
	}

	log.Debug().Fields(stepSettings.GetMetadata()).Msg("loaded step settings")

	return stepSettings, nil
}
