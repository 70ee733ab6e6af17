// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var debugEnabled bool

// Init initializes the global logger. Console output is meant for local
// runs; release builds log JSON lines to stderr.
func Init(debug, console bool) {
	debugEnabled = debug
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "taskflow").Logger()
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}
