package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStanza creates a child logger with stanza field
func WithStanza(stanza string) zerolog.Logger {
	return Logger.With().Str("stanza", stanza).Logger()
}

// WithLabel creates a child logger with backup label field
func WithLabel(label string) zerolog.Logger {
	return Logger.With().Str("label", label).Logger()
}

// WithRepo creates a child logger with repo_key field, for multi-repository
// configurations.
func WithRepo(repoKey string) zerolog.Logger {
	return Logger.With().Str("repo_key", repoKey).Logger()
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}

// DryRunLogger prefixes every message with "[DRY-RUN] " when dryRun is set,
// for mutating steps that were replaced with log-only steps.
type DryRunLogger struct {
	logger zerolog.Logger
	dryRun bool
}

// NewDryRunLogger wraps logger; when dryRun is true every message is
// prefixed and no mutating action should be taken by the caller.
func NewDryRunLogger(logger zerolog.Logger, dryRun bool) *DryRunLogger {
	return &DryRunLogger{logger: logger, dryRun: dryRun}
}

// DryRun reports whether this logger is in dry-run mode.
func (d *DryRunLogger) DryRun() bool {
	return d.dryRun
}

func (d *DryRunLogger) prefix(msg string) string {
	if d.dryRun {
		return "[DRY-RUN] " + msg
	}
	return msg
}

// Info logs msg at info level, prefixed when in dry-run mode.
func (d *DryRunLogger) Info(msg string) {
	d.logger.Info().Msg(d.prefix(msg))
}

// Warn logs msg at warn level, prefixed when in dry-run mode.
func (d *DryRunLogger) Warn(msg string) {
	d.logger.Warn().Msg(d.prefix(msg))
}
