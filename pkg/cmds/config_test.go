package cmds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/steps"
	"github.com/go-go-golems/parley/pkg/steps/ai/chat"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func emptyLoader(v *viper.Viper) *APIKeyLoader {
	return &APIKeyLoader{
		Viper:  v,
		Getenv: func(string) string { return "" },
	}
}

func TestAPIKeyLoader_Order(t *testing.T) {
	dir := t.TempDir()
	secrets := writeFile(t, dir, "secrets.toml", "[general]\nOPENAI_API_KEY = \"sk-secrets\"\n")
	dotEnv := writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-dotenv\n")
	prompt := func() (string, error) { return " sk-prompt \n", nil }

	t.Run("viper wins", func(t *testing.T) {
		v := viper.New()
		v.Set(APIKeySetting, " sk-viper ")
		l := &APIKeyLoader{
			Viper:        v,
			Getenv:       func(string) string { return "sk-env" },
			SecretsFiles: []string{secrets},
			DotEnvFiles:  []string{dotEnv},
			Prompt:       prompt,
		}
		key, source, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-viper", key)
		assert.Equal(t, KeySourceViper, source)
	})

	t.Run("environment", func(t *testing.T) {
		l := &APIKeyLoader{
			Viper: viper.New(),
			Getenv: func(k string) string {
				if k == EnvironmentAPIKey {
					return "sk-env"
				}
				return ""
			},
			SecretsFiles: []string{secrets},
		}
		key, source, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-env", key)
		assert.Equal(t, KeySourceEnvironment, source)
	})

	t.Run("secrets file", func(t *testing.T) {
		l := emptyLoader(viper.New())
		l.SecretsFiles = []string{filepath.Join(dir, "missing.toml"), secrets}
		l.DotEnvFiles = []string{dotEnv}
		key, source, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-secrets", key)
		assert.Equal(t, KeySourceSecretsFile, source)
	})

	t.Run("dotenv", func(t *testing.T) {
		l := emptyLoader(viper.New())
		l.DotEnvFiles = []string{dotEnv}
		l.Prompt = prompt
		key, source, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-dotenv", key)
		assert.Equal(t, KeySourceDotEnv, source)
	})

	t.Run("prompt", func(t *testing.T) {
		l := emptyLoader(viper.New())
		l.Prompt = prompt
		key, source, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-prompt", key)
		assert.Equal(t, KeySourcePrompt, source)
	})
}

func TestAPIKeyLoader_MissingKeyIsConfigurationError(t *testing.T) {
	l := emptyLoader(viper.New())
	l.SecretsFiles = []string{filepath.Join(t.TempDir(), "nope.toml")}

	_, _, err := l.Load()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, errors.Is(err, steps.ErrMissingClientAPIKey))

	l.Prompt = func() (string, error) { return "", errors.New("interrupted") }
	_, _, err = l.Load()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "interrupted")
}

func TestAPIKeyLoader_BrokenSecretsFile(t *testing.T) {
	dir := t.TempDir()
	l := emptyLoader(viper.New())
	l.SecretsFiles = []string{writeFile(t, dir, "secrets.toml", "[general\nOPENAI_API_KEY=")}

	_, _, err := l.Load()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestLoadStepSettings_FileThenViper(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "settings.yaml", `
factories:
  chat:
    model: file-model
    vision_model: file-vision
    temperature: 0.3
  client:
    timeout: 5
`)

	v := viper.New()
	v.Set("settings-file", f)
	v.Set("ai-model", "flag-model")
	v.Set(APIKeySetting, "sk-x")

	s, err := LoadStepSettings(v, emptyLoader(v))
	require.NoError(t, err)
	assert.Equal(t, "flag-model", s.Chat.Model)
	assert.Equal(t, "file-vision", s.Chat.VisionModel)
	require.NotNil(t, s.Chat.Temperature)
	assert.Equal(t, 0.3, *s.Chat.Temperature)
	assert.True(t, s.Chat.Stream)
	require.NotNil(t, s.Client.TimeoutSeconds)
	assert.Equal(t, 5, *s.Client.TimeoutSeconds)
	require.True(t, s.OpenAI.HasAPIKey())
	assert.Equal(t, "sk-x", *s.OpenAI.APIKey)
}

func TestLoadStepSettings_InvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("ai-temperature", 7.0)
	v.Set("ai-top-p", 3.0)

	_, err := LoadStepSettings(v, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.True(t, errors.Is(err, settings.ErrInvalidSetting))
	assert.Contains(t, err.Error(), "ai-temperature")
	assert.Contains(t, err.Error(), "ai-top-p")
}

func TestLoadStepSettings_MissingFile(t *testing.T) {
	v := viper.New()
	v.Set("settings-file", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadStepSettings(v, nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestNewRuntime_WithResponder(t *testing.T) {
	v := viper.New()
	v.Set("rollback-policy", "keep-user-message")

	mock := chat.NewMockResponder(chat.MockReply{Fragments: []string{"He", "llo", "!"}})
	rt, err := NewRuntime(v, WithResponder(mock))
	require.NoError(t, err)
	defer func() {
		_ = rt.Close()
	}()

	assert.Equal(t, "keep-user-message", rt.Controller.RollbackPolicy().String())

	msg, err := rt.Controller.SubmitTurn(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Text())
	assert.Equal(t, 2, rt.Controller.Current().Len())
	assert.Equal(t, conversation.RoleAssistant, msg.Role)
}

func TestNewRuntime_EchoNeedsNoKey(t *testing.T) {
	v := viper.New()
	v.Set("echo", true)

	rt, err := NewRuntime(v, WithAPIKeyLoader(emptyLoader(v)))
	require.NoError(t, err)
	_ = rt.Close()
}

func TestNewRuntime_BadPolicy(t *testing.T) {
	v := viper.New()
	v.Set("echo", true)
	v.Set("rollback-policy", "sometimes")

	_, err := NewRuntime(v)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestNewRuntime_MissingKey(t *testing.T) {
	v := viper.New()
	l := emptyLoader(v)
	l.SecretsFiles = []string{filepath.Join(t.TempDir(), "nope.toml")}

	_, err := NewRuntime(v, WithAPIKeyLoader(l))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}
