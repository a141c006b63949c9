package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLicense()
	if err := c.normalizePacker(); err != nil {
		return err
	}
	c.normalizeLauncher()
	c.normalizeAudit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.hashes_dir", &c.Paths.HashesDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.audit_db", &c.Paths.AuditDB},
		{"paths.scratch_dir", &c.Paths.ScratchDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLicense() {
	if value, ok := os.LookupEnv(envLicenseSalt); ok && strings.TrimSpace(value) != "" {
		c.License.Salt = value
	}
}

func (c *Config) normalizePacker() error {
	c.Packer.Template = strings.TrimSpace(c.Packer.Template)
	if c.Packer.Template == "" {
		if value, ok := os.LookupEnv(envTemplate); ok {
			c.Packer.Template = strings.TrimSpace(value)
		}
	}
	if c.Packer.Template != "" {
		expanded, err := expandPath(c.Packer.Template)
		if err != nil {
			return fmt.Errorf("packer.template: %w", err)
		}
		c.Packer.Template = expanded
	}
	if c.Packer.Workers <= 0 {
		c.Packer.Workers = min(runtime.NumCPU(), maxWorkers)
	}
	c.Packer.OnCollision = strings.ToLower(strings.TrimSpace(c.Packer.OnCollision))
	if c.Packer.OnCollision == "" {
		c.Packer.OnCollision = defaultOnCollision
	}
	c.Packer.OutputExtension = normalizeExtension(c.Packer.OutputExtension)
	return nil
}

func (c *Config) normalizeLauncher() {
	seen := make(map[string]struct{}, len(c.Launcher.MediaExtensions))
	exts := make([]string, 0, len(c.Launcher.MediaExtensions))
	for _, ext := range c.Launcher.MediaExtensions {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultMediaExtensions...)
	}
	c.Launcher.MediaExtensions = exts

	argv := c.Launcher.PlayerCommand[:0]
	for _, arg := range c.Launcher.PlayerCommand {
		if strings.TrimSpace(arg) != "" {
			argv = append(argv, arg)
		}
	}
	c.Launcher.PlayerCommand = argv

	c.Launcher.PasswordEnv = strings.TrimSpace(c.Launcher.PasswordEnv)
	if c.Launcher.PasswordEnv == "" {
		c.Launcher.PasswordEnv = defaultPasswordEnv
	}
}

func (c *Config) normalizeAudit() {
	if c.Audit.QueueSize <= 0 {
		c.Audit.QueueSize = defaultAuditQueueSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
