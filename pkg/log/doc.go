/*
Package log provides structured logging for the storage core using zerolog.

The log package wraps zerolog to give every subsystem a JSON-structured
logger tagged with its component name, a configurable level and output
writer, and (for per-core log lines) the identity of the storage core the
message concerns.

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
	│  │  - WithComponent("core")                    │          │
	│  │  - WithCore("core", coreID)                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "core",                     │          │
	│  │    "core": "shard-0",                       │          │
	│  │    "time": "2026-07-31T10:30:00Z",          │          │
	│  │    "message": "core opened"                 │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF core opened component=core core=shard-0 │ │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Log Levels

Debug, Info, Warn and Error mirror zerolog's own levels; there is no Fatal
helper here, since a storage core surfaces failures as errors returned up
to its caller rather than exiting the process from inside a library
package.

# Usage

Initializing the logger, once, at process start:

	import "github.com/cuemby/ridgedb/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers tag every line emitted by one subsystem:

	logger := log.WithComponent("datastore")
	logger.Info().Msg("background loop started")
	logger.Error().Err(err).Msg("compaction failed")

WithCore additionally tags the storage core the message concerns, for the
subsystems (core, replication) whose log lines are meaningless without
knowing which core produced them:

	logger := log.WithCore("core", identity.String())
	logger.Info().Str("root", coreRoot).Bool("ttl", ttlEnabled).Msg("core opened")

# Integration Points

This package is used by:

  - pkg/core: per-core lifecycle and role-transition logging
  - pkg/datastore: background flush/compaction loop logging
  - pkg/instructionlog, pkg/checkpoint, pkg/replication, pkg/taskrunner:
    component-tagged operational logging
  - cmd/ridgedb: CLI startup/shutdown logging, configured from
    --log-level/--log-json

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized once in main()
  - Accessible from every package without passing a logger through call
    chains several layers deep

Context Logger Pattern:
  - WithComponent/WithCore build child loggers carrying fixed fields
  - Avoids repeating Str("component", ...) at every call site

# Security

Never log key or value bytes from the data namespace, transfer payloads,
or replication wire chunks: log structural facts (counts, sizes, clocks,
outcomes), not the data itself.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
