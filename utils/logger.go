package utils

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const timeFormat = "15:04:05"

var logger = newConsoleLogger(os.Stdout).Level(zerolog.DebugLevel)

func newConsoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}).
		With().Timestamp().Logger()
}

// InitLogger configures the shared logger for an environment.
// "production" writes JSON at info level, everything else writes
// colored console lines at debug level.
func InitLogger(env string) {
	if env == "production" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	logger = newConsoleLogger(os.Stdout).Level(zerolog.DebugLevel)
}

// SetOutput redirects the shared logger as plain JSON lines. Tests use it
// to capture or silence output.
func SetOutput(w io.Writer) {
	logger = zerolog.New(w).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

// Log exposes the shared logger for structured events.
func Log() *zerolog.Logger {
	return &logger
}

func Debug(format string, a ...interface{}) {
	logger.Debug().Msgf(format, a...)
}

func Info(format string, a ...interface{}) {
	logger.Info().Msgf(format, a...)
}

func Success(format string, a ...interface{}) {
	logger.Info().Bool("ok", true).Msgf(format, a...)
}

func Warn(format string, a ...interface{}) {
	logger.Warn().Msgf(format, a...)
}

func Error(format string, a ...interface{}) {
	logger.Error().Msgf(format, a...)
}

func Section(title string) {
	logger.Info().Msg("══════════ " + title + " ══════════")
}
