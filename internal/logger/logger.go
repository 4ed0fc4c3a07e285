// Package logger provides pipeline logging for the docent CLI.
// When verbose mode is enabled via the --verbose flag, stage events
// are printed to stderr to help users understand the query pipeline.
// The serve command switches to JSON output for log collectors.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	log     = newConsole(os.Stderr).Level(zerolog.Disabled)
)

func newConsole(w io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(console).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.Disabled)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for console logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level := log.GetLevel()
	log = newConsole(w).Level(level)
}

// UseJSON switches to machine-readable JSON output at info level.
// Used by the serve command where logs feed collectors rather than a
// terminal. Verbose mode still lowers the level to debug.
func UseJSON(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Section prints a section header marking a pipeline phase boundary.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Str("section", name).Msgf("=== %s ===", name)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, args...)
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msgf(format, args...)
}
