// Package common provides shared utilities for medterms
package common

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// Logger wraps log.Logger to provide a consistent interface
type Logger struct {
	log.Logger
}

func parseLevel(level string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel, true
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	case "disabled", "off", "none":
		return log.PanicLevel, false
	default:
		return log.InfoLevel, true
	}
}

// NewLogger creates a console logger on stderr with the specified level
func NewLogger(level string) *Logger {
	lvl, enabled := parseLevel(level)
	if !enabled {
		return NewSilentLogger()
	}
	return &Logger{Logger: log.Logger{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		Writer: &log.ConsoleWriter{
			Writer:      os.Stderr,
			ColorOutput: log.IsTerminal(os.Stderr.Fd()),
		},
	}}
}

// NewLoggerWithOutput creates a JSON logger writing to a specific output
func NewLoggerWithOutput(level string, w io.Writer) *Logger {
	lvl, enabled := parseLevel(level)
	if !enabled {
		return NewSilentLogger()
	}
	return &Logger{Logger: log.Logger{
		Level:  lvl,
		Writer: &log.IOWriter{Writer: w},
	}}
}

// NewLoggerFromConfig builds a logger from the [logging] section.
// Outputs may include "console" (stderr) and "file" (size-rotated).
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	lvl, enabled := parseLevel(cfg.Level)
	if !enabled {
		return NewSilentLogger()
	}

	var writers []log.Writer
	for _, out := range cfg.Outputs {
		switch strings.ToLower(out) {
		case "console":
			if strings.EqualFold(cfg.Format, "json") {
				writers = append(writers, &log.IOWriter{Writer: os.Stderr})
			} else {
				writers = append(writers, &log.ConsoleWriter{
					Writer:      os.Stderr,
					ColorOutput: log.IsTerminal(os.Stderr.Fd()),
				})
			}
		case "file":
			if cfg.FilePath == "" {
				continue
			}
			writers = append(writers, &log.FileWriter{
				Filename:     cfg.FilePath,
				MaxSize:      int64(cfg.MaxSizeMB) << 20,
				MaxBackups:   cfg.MaxBackups,
				EnsureFolder: true,
				LocalTime:    true,
			})
		}
	}

	var writer log.Writer
	switch len(writers) {
	case 0:
		writer = &log.IOWriter{Writer: os.Stderr}
	case 1:
		writer = writers[0]
	default:
		multi := log.MultiEntryWriter(writers)
		writer = &multi
	}

	return &Logger{Logger: log.Logger{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		Writer:     writer,
	}}
}

// NewDefaultLogger creates a logger with default settings
func NewDefaultLogger() *Logger {
	return NewLogger("info")
}

// NewSilentLogger creates a logger that discards all output
func NewSilentLogger() *Logger {
	return &Logger{Logger: log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}}
}
