package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger
	mu           sync.RWMutex
	initialized  bool
)

// GetLogger returns the process logger. Until New is called it writes
// console output at info level.
func GetLogger() zerolog.Logger {
	mu.RLock()
	if initialized {
		l := globalLogger
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !initialized {
		globalLogger = newWithWriter(consoleWriter(os.Stdout)).Level(zerolog.InfoLevel)
		initialized = true
	}
	return globalLogger
}

// New builds a logger from a level ("debug", "info", ...) and a format
// ("console" or "json") and installs it as the process logger.
func New(level, format string) (zerolog.Logger, error) {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New with an explicit destination.
func NewWithOutput(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		l = newWithWriter(out)
	case "console":
		l = newWithWriter(consoleWriter(out))
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}
	l = l.Level(lvl)

	mu.Lock()
	globalLogger = l
	initialized = true
	mu.Unlock()

	return l, nil
}

func newWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}
