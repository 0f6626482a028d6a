package cmds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_FileOnly(t *testing.T) {
	oldLogger, oldLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = oldLogger
		zerolog.SetGlobalLevel(oldLevel)
	})

	logFile := filepath.Join(t.TempDir(), "parley.log")
	require.NoError(t, InitLogger(&LogConfig{
		Level:    "debug",
		LogFile:  logFile,
		NoStderr: true,
	}))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("conversation", "work").Msg("switched")
	log.Trace().Msg("not written")

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), "switched")
	assert.Contains(t, string(b), "conversation=work")
	assert.NotContains(t, string(b), "not written")
}

func TestInitLogger_UnknownLevel(t *testing.T) {
	oldLogger, oldLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = oldLogger
		zerolog.SetGlobalLevel(oldLevel)
	})

	err := InitLogger(&LogConfig{Level: "chatty", NoStderr: true})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestLogConfigFromViper_VerboseMeansDebug(t *testing.T) {
	v := viper.New()
	v.Set("log-level", "warn")
	v.Set("verbose", true)
	v.Set("log-file", "/tmp/x.log")

	c := LogConfigFromViper(v)
	assert.Equal(t, "debug", c.Level)
	assert.Equal(t, "/tmp/x.log", c.LogFile)

	v.Set("log-level", "trace")
	assert.Equal(t, "trace", LogConfigFromViper(v).Level)
}
