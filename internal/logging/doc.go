// Package logging builds the slog loggers used across the engine.
//
// Two handler formats are supported: a human-oriented console handler that
// colorizes output only when writing to a terminal, and a JSON handler for
// file and machine consumption. NewFromConfig wires the configured level,
// format, and log directory.
package logging
