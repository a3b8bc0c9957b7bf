package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// InitDefault installs a console logger at info level, used until flags are parsed.
func InitDefault() {
	_ = Init("info", FormatConsole, false)
}

// Init configures the global logger.
func Init(level, format string, noColor bool) error {
	return InitWriter(os.Stderr, level, format, noColor)
}

func InitWriter(out io.Writer, level, format string, noColor bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer
	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: noColor}
	case FormatJSON:
		w = out
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", format)
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, falling back to info")
	}
	return nil
}
