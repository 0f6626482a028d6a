package cmds

import (
	"github.com/go-go-golems/parley/pkg/steps/ai/settings"
	"github.com/go-go-golems/parley/pkg/steps/ai/settings/openai"
	"github.com/spf13/cobra"
)

// AddPersistentFlags registers the logging, config and AI settings flags on the root
// command. Their values are read through viper once bound.
func AddPersistentFlags(rootCmd *cobra.Command) {
	fs := rootCmd.PersistentFlags()

	// logging flags
	fs.Bool("with-caller", false, "Log caller")
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	fs.String("log-format", "text", "Log format (json, text)")
	fs.String("log-file", "", "Log file (default: stderr)")

	fs.String("config", "", "Path to config file (default ~/.parley/config.yaml)")
	fs.String("settings-file", "", "YAML file with AI settings under a 'factories' key")
	fs.String("secrets-file", "", "TOML file with [general] OPENAI_API_KEY (default ./secrets.toml, ~/.parley/secrets.toml)")
	fs.Bool("verbose", false, "Verbose output")

	fs.String("openai-api-key", "", "OpenAI API key")
	fs.String("openai-base-url", openai.DefaultBaseURL, "Base URL of an OpenAI compatible API")
	fs.String("openai-organization", "", "OpenAI organization")

	fs.String("ai-model", settings.DefaultModel, "Model for text turns")
	fs.String("ai-vision-model", settings.DefaultVisionModel, "Model for turns with an image")
	fs.Float64("ai-temperature", 0, "Sampling temperature")
	fs.Float64("ai-top-p", 1, "Nucleus sampling")
	fs.Int("ai-max-response-tokens", 0, "Maximum tokens in a reply")
	fs.StringSlice("ai-stop", nil, "Stop sequences")
	fs.Bool("ai-stream", true, "Stream replies")
	fs.String("ai-system-prompt", "", "System prompt template sent before every request")
	fs.Int("ai-timeout", 60, "Request timeout in seconds")

	fs.String("rollback-policy", "rollback-turn", "What to do with the user message of a failed turn (rollback-turn, keep-user-message)")
	fs.Bool("echo", false, "Echo messages back instead of calling the API")
}
