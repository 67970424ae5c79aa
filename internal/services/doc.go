// Package services defines shared utilities consumed by the command handlers
// and the engine components behind them.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures for
//     classification at the command boundary.
//   - Context helpers that stamp request ids, command names, and correlation
//     identifiers for logging.
//
// Use these helpers when wiring new command logic so operational behaviour
// (error handling, observability) stays uniform across the engine.
package services
