package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLicense(); err != nil {
		return err
	}
	if err := c.validatePacker(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLicense() error {
	if strings.TrimSpace(c.License.Salt) == "" {
		return fmt.Errorf("license.salt must not be empty (set %s or edit the config file)", envLicenseSalt)
	}
	return nil
}

func (c *Config) validatePacker() error {
	switch c.Packer.OnCollision {
	case CollisionSuffix, CollisionOverwrite:
	default:
		return fmt.Errorf("packer.on_collision: unsupported value %q (want %q or %q)", c.Packer.OnCollision, CollisionSuffix, CollisionOverwrite)
	}
	if c.Packer.Workers > maxWorkers {
		return fmt.Errorf("packer.workers must be at most %d", maxWorkers)
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.Enabled && strings.TrimSpace(c.Paths.AuditDB) == "" {
		return errors.New("paths.audit_db must be set when audit.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
