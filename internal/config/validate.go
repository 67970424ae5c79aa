package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateChooser(); err != nil {
		return err
	}
	if err := c.validateResolution(); err != nil {
		return err
	}
	if err := c.validateDedupe(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if c.Delivery.MaxTransferBytes <= 0 {
		return errors.New("delivery.max_transfer_bytes must be positive")
	}
	if c.Delivery.TimeoutSeconds <= 0 {
		return errors.New("delivery.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateChooser() error {
	if c.Chooser.AttemptTimeoutSeconds <= 0 {
		return errors.New("chooser.attempt_timeout_seconds must be positive")
	}
	if c.Chooser.MaxRows < 1 || c.Chooser.MaxRows > 10 {
		return errors.New("chooser.max_rows must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateResolution() error {
	if c.Resolution.ConfirmationTTLMinutes <= 0 {
		return errors.New("resolution.confirmation_ttl_minutes must be positive")
	}
	return nil
}

func (c *Config) validateDedupe() error {
	if c.Dedupe.WindowSeconds <= 0 {
		return errors.New("dedupe.window_seconds must be positive")
	}
	if c.Dedupe.EvictionTarget >= c.Dedupe.SoftLimit {
		return errors.New("dedupe.eviction_target must be below dedupe.soft_limit")
	}
	if c.Dedupe.HardLimit <= c.Dedupe.SoftLimit {
		return errors.New("dedupe.hard_limit must be above dedupe.soft_limit")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
