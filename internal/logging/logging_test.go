package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/promptstream/promptstream/internal/configtypes"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, Level("debug"))
	require.Equal(t, zerolog.WarnLevel, Level("WARN"))
	require.Equal(t, zerolog.Disabled, Level("none"))
	require.Equal(t, zerolog.InfoLevel, Level("unknown"))
}

func TestSetupFile(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "promptstream.log")
	closeFn, err := Setup(configtypes.Log{Level: "error", File: path})
	require.NoError(t, err)
	log.Info().Msg("skipped")
	log.Error().Msg("written")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "skipped")
	require.Contains(t, string(data), "written")
	require.True(t, Enabled(zerolog.ErrorLevel))
	require.False(t, Enabled(zerolog.InfoLevel))
}

func TestSetupFileError(t *testing.T) {
	_, err := Setup(configtypes.Log{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	require.Error(t, err)
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf))
	logger.Warn().Msg("reconnecting")
	require.Contains(t, buf.String(), colorize("WRN", colorYellow))
	require.Contains(t, buf.String(), "reconnecting")
}
