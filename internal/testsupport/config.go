package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return &cfg
}

// WithOwner marks the given requester id as the global owner.
func WithOwner(id string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Auth.OwnerID = id
	}
}
