// Package logging builds the process logger from config.
package logging

import (
	"io"

	"github.com/andy/billhours/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w. The "human" format uses the console
// writer, anything else emits JSON lines.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	output := w
	if cfg.Format == "human" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
