// Package commands routes inbound chat commands to the resolution engine.
// The router admits each event through the duplicate-suppression guard,
// resolves and authorizes the target request once, and translates every
// taxonomy error into a single user-visible reply. Handlers never see
// duplicates and never panic the worker.
package commands
