/*
Package log provides structured logging for the repository core using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and a dry-run wrapper
used by the expiration engine. All logs include timestamps and support
filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("expire")                  │          │
	│  │  - WithStanza("main")                       │          │
	│  │  - WithLabel("20210101-120000F")            │          │
	│  │  - WithRepo("repo1")                        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF expire full backup set stanza=main │      │
	│  │  [DRY-RUN] remove archive path: .../12-2    │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all repo packages

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages (matches "P00 INFO:" lines)
  - Warn: Potential issues (ad-hoc expire of unknown label, etc.)
  - Error: Operation failures
  - Fatal: Unrecoverable startup errors

Context Loggers:
  - WithComponent: component name (e.g. "expire", "manifest")
  - WithStanza: stanza name
  - WithLabel: backup label
  - WithRepo: repository key, for multi-repository configurations

Dry-Run Wrapper:
  - NewDryRunLogger(logger, dryRun) returns a helper with Info and Warn
    methods that prefixes every message with "[DRY-RUN] " when dryRun is
    true, used by the expiration engine's dry-run mode.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	expLog := log.WithComponent("expire").With().Str("stanza", "main").Logger()
	expLog.Info().Str("label", "20210101-120000F").Msg("expire full backup set")

	dry := log.NewDryRunLogger(expLog, cfg.DryRun)
	dry.Info("remove archive path: /archive/main/12-2")
*/
package log
