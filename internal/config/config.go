package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LibraryDir string `toml:"library_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Delivery contains limits applied when transporting resolved assets.
type Delivery struct {
	MaxTransferBytes int64 `toml:"max_transfer_bytes"`
	TimeoutSeconds   int   `toml:"timeout_seconds"`
}

// Chooser contains timing for the interactive chooser fallback chain.
type Chooser struct {
	AttemptTimeoutSeconds int `toml:"attempt_timeout_seconds"`
	MaxRows               int `toml:"max_rows"`
}

// Events contains configuration for outbound webhook notifications.
type Events struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Resolution contains tunables for the request lifecycle.
type Resolution struct {
	ConfirmationTTLMinutes int `toml:"confirmation_ttl_minutes"`
}

// Dedupe contains tunables for the inbound idempotency guard.
type Dedupe struct {
	WindowSeconds  int `toml:"window_seconds"`
	EntryTTLHours  int `toml:"entry_ttl_hours"`
	SoftLimit      int `toml:"soft_limit"`
	EvictionTarget int `toml:"eviction_target"`
	HardLimit      int `toml:"hard_limit"`
}

// Window returns the duplicate suppression window.
func (d Dedupe) Window() time.Duration {
	return time.Duration(d.WindowSeconds) * time.Second
}

// EntryTTL returns the age past which guard entries are evicted.
func (d Dedupe) EntryTTL() time.Duration {
	return time.Duration(d.EntryTTLHours) * time.Hour
}

// Classifier contains configuration for the content rule table.
type Classifier struct {
	RulesPath string `toml:"rules_path"`
}

// Auth identifies the global owner. Moderator elevation arrives with each
// inbound command; the owner is fixed per deployment.
type Auth struct {
	OwnerID string `toml:"owner_id"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the resolution engine.
//
// Configuration sections by subsystem:
//   - Paths: data, library, staging, and log directories
//   - Delivery: transfer size and timeout limits
//   - Chooser: interactive chooser fallback timing
//   - Events: webhook notification endpoint
//   - Resolution: confirmation expiry window
//   - Dedupe: inbound duplicate suppression windows and cache bounds
//   - Classifier: optional external content rule table
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Delivery   Delivery   `toml:"delivery"`
	Chooser    Chooser    `toml:"chooser"`
	Events     Events     `toml:"events"`
	Resolution Resolution `toml:"resolution"`
	Dedupe     Dedupe     `toml:"dedupe"`
	Classifier Classifier `toml:"classifier"`
	Auth       Auth       `toml:"auth"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/oguricap/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// file was found at the resolved path; defaults apply either way.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("oguricap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Classifier.RulesPath) != "" {
		if c.Classifier.RulesPath, err = expandPath(c.Classifier.RulesPath); err != nil {
			return fmt.Errorf("classifier.rules_path: %w", err)
		}
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates required directories for engine operation.
// LibraryDir is created on a best-effort basis so the engine can start when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
