// Package store persists requests, library items, contributions, and
// providers in SQLite and exposes the optimistic mutation primitive the
// resolution engine builds on.
//
// Requests carry their voters, audit log, pending confirmation, and
// resolution record as JSON columns. MutateRequest re-reads the row, lets
// the caller validate and mutate it, and lands the update only while the
// status still matches what the caller observed, so interleaved invocations
// sharing the database degrade to an idempotent conflict instead of a lost
// update. Library items and contributions are read-only to the engine;
// their Put surfaces exist for ingestion tooling and fixtures.
package store
