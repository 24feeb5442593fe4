package logging

import (
	"io"
	"os"
	"strings"

	"pvp-wheel/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var writer io.Writer = os.Stdout

// Init configures the global zerolog logger. When cfg.File is set, output
// goes to a size-limited file instead of stdout.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	writer = os.Stdout
	if cfg.File != "" {
		if w, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB); err == nil {
			writer = w
		}
	}
	output := writer
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: writer}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the destination Init selected, for handing to other
// logging frontends (request logging).
func Writer() io.Writer {
	return writer
}
