// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/promptstream/promptstream/internal/configtypes"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevelMatches = map[string]zerolog.Level{
	"NONE":  zerolog.Disabled,
	"TRACE": zerolog.TraceLevel,
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
}

// Level returns zerolog level for a config value, info for unknown values.
func Level(level string) zerolog.Level {
	if l, ok := logLevelMatches[strings.ToUpper(level)]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Logs go to stderr: stdout carries command output such as streamed results.
var logOutput io.Writer = os.Stderr

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:                 out,
		TimeFormat:          "2006-01-02 15:04:05",
		FormatLevel:         consoleFormatLevel(),
		FormatErrFieldName:  consoleFormatErrFieldName(),
		FormatErrFieldValue: consoleFormatErrFieldValue(),
	}
}

func isTerminalAttached(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) && runtime.GOOS != "windows"
}

// Setup configures global logger. Returned func closes the log file if any.
func Setup(cfg configtypes.Log) (func(), error) {
	SetLevel(cfg.Level)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
		return func() {
			_ = f.Close()
		}, nil
	}
	if f, ok := logOutput.(*os.File); ok && isTerminalAttached(f) {
		log.Logger = log.Output(consoleWriter(f))
	} else {
		log.Logger = zerolog.New(logOutput).With().Timestamp().Logger()
	}
	return func() {}, nil
}

// SetLevel changes global log level.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(Level(level))
}

// Enabled checks if a specific logging level is enabled.
func Enabled(level zerolog.Level) bool {
	return level >= zerolog.GlobalLevel()
}
