package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediapack/internal/config"
)

// ConfigOption adjusts a config built by NewConfig. root is the per-test
// directory every configured path lives under.
type ConfigOption func(t testing.TB, root string, cfg *config.Config)

// NewConfig returns defaults with every path moved under a fresh temp
// directory, two packer workers and host-device probing off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		OutputDir:  filepath.Join(root, "done"),
		HashesDir:  filepath.Join(root, "hashes"),
		LogDir:     filepath.Join(root, "logs"),
		AuditDB:    filepath.Join(root, "audit", "audit.db"),
		ScratchDir: filepath.Join(root, "scratch"),
	}
	cfg.Packer.Workers = 2
	cfg.License.ProbeHostDevice = false

	for _, opt := range opts {
		opt(t, root, &cfg)
	}
	return &cfg
}

// WithTemplate writes a launcher template under root/bin and selects it.
func WithTemplate() ConfigOption {
	return func(t testing.TB, root string, cfg *config.Config) {
		cfg.Packer.Template = WriteTemplate(t, filepath.Join(root, "bin"))
	}
}

// WithSalt overrides the allowlist salt.
func WithSalt(salt string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.License.Salt = salt
	}
}

// WithAuditDisabled turns off the issued-hash datastore.
func WithAuditDisabled() ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Audit.Enabled = false
	}
}

// WithDirectories creates the configured directories, scratch included.
func WithDirectories() ConfigOption {
	return func(t testing.TB, _ string, cfg *config.Config) {
		if err := cfg.EnsureDirectories(); err != nil {
			t.Fatalf("ensure directories: %v", err)
		}
		if err := os.MkdirAll(cfg.Paths.ScratchDir, 0o755); err != nil {
			t.Fatalf("mkdir scratch: %v", err)
		}
	}
}
