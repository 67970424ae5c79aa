// Package config loads, normalizes, and validates the TOML configuration for
// the request resolution engine.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/oguricap/config.toml, then ./oguricap.toml, falling back to
// built-in defaults when no file exists. All path fields are tilde-expanded
// and made absolute during Load.
package config
