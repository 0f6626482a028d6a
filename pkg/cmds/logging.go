package cmds

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
	// NoStderr keeps log output off the terminal, used while the chat UI owns the
	// screen. Only LogFile is written, if set.
	NoStderr bool
}

func LogConfigFromViper(v *viper.Viper) *LogConfig {
	logLevel := v.GetString("log-level")
	if v.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}

	return &LogConfig{
		Level:      logLevel,
		LogFile:    v.GetString("log-file"),
		LogFormat:  v.GetString("log-format"),
		WithCaller: v.GetBool("with-caller"),
	}
}

func InitLogger(config *LogConfig) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if config.WithCaller {
		logger = logger.With().Caller().Logger()
	}

	// default is json
	var writers []io.Writer
	if !config.NoStderr {
		if config.LogFormat == "text" {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
		} else {
			writers = append(writers, os.Stderr)
		}
	}

	if config.LogFile != "" {
		writers = append(writers, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28,    //days
				Compress:   false, // disabled by default
			},
		})
	}

	switch len(writers) {
	case 0:
		log.Logger = logger.Output(io.Discard)
	case 1:
		log.Logger = logger.Output(writers[0])
	default:
		log.Logger = logger.Output(io.MultiWriter(writers...))
	}

	switch config.Level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		return &ConfigurationError{Setting: "log-level", Cause: errors.Errorf("unknown log level %q", config.Level)}
	}

	return nil
}
