// Package logger provides structured logging with console and file output.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zerolog.Logger
}

// Options controls where and how much the service logs.
type Options struct {
	Level string
	File  string
	// JSON disables the human readable console writer.
	JSON bool
	// Out overrides stdout, mostly for tests.
	Out io.Writer
}

// New creates a logger from opts.
func New(opts Options) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var writers []io.Writer
	if opts.JSON {
		writers = append(writers, out)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, err
		}

		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &Logger{l}, nil
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}

// Global is the global logger instance for convenience.
var Global *Logger

// Init initializes the global logger.
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	Global = l
	return nil
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *Logger {
	if Global == nil {
		return Nop()
	}
	return Global
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}
