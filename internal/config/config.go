package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"mediapack/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// FileName is the project-local and executable-adjacent config file name.
const FileName = "mediapack.toml"

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	HashesDir  string `toml:"hashes_dir"`
	LogDir     string `toml:"log_dir"`
	AuditDB    string `toml:"audit_db"`
	ScratchDir string `toml:"scratch_dir"`
}

// License contains allowlist hashing settings.
type License struct {
	// Salt is prepended to every hardware serial before hashing. Changing it
	// invalidates every container built with the previous value.
	Salt string `toml:"salt"`
	// ProbeHostDevice lets the launcher fall back to the device hosting its
	// own executable when no listed removable device matches.
	ProbeHostDevice bool `toml:"probe_host_device"`
}

// Packer contains container authoring settings.
type Packer struct {
	Template        string `toml:"template"`
	Workers         int    `toml:"workers"`
	OnCollision     string `toml:"on_collision"`
	OutputExtension string `toml:"output_extension"`
}

// Launcher contains runtime settings for the self-extracting stub.
type Launcher struct {
	MediaExtensions []string `toml:"media_extensions"`
	OpenAll         bool     `toml:"open_all"`
	PlayerCommand   []string `toml:"player_command"`
	WaitForPlayer   bool     `toml:"wait_for_player"`
	PasswordEnv     string   `toml:"password_env"`
}

// Audit contains configuration for the issued-hash datastore.
type Audit struct {
	Enabled   bool `toml:"enabled"`
	QueueSize int  `toml:"queue_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediapack.
//
// Configuration sections by subsystem:
//   - Paths: output, export, log, audit and scratch locations
//   - License: allowlist salt and host-device fallback
//   - Packer: launcher template, parallelism and collision policy
//   - Launcher: media selection and player handoff
//   - Audit: issued-hash record keeping
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	License  License  `toml:"license"`
	Packer   Packer   `toml:"packer"`
	Launcher Launcher `toml:"launcher"`
	Audit    Audit    `toml:"audit"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the user-level config location with ~ expanded.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads configuration from path, or from the first existing candidate
// among the user-level file and ./mediapack.toml when path is empty. It
// returns the config, the path it resolved and whether that file existed.
// A missing file yields defaults.
func Load(path string) (*Config, string, bool, error) {
	return load(path, "")
}

// LoadForExecutable is Load for the launcher: without an explicit path a
// mediapack.toml beside executable is tried before the user-level locations.
func LoadForExecutable(path, executable string) (*Config, string, bool, error) {
	return load(path, executable)
}

func load(explicit, executable string) (*Config, string, bool, error) {
	source, err := locate(explicit, executable)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if source.exists {
		if err := decodeFile(source.path, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source.path, source.exists, nil
}

type configSource struct {
	path   string
	exists bool
}

// locate picks the config file. An explicit path is used whether or not it
// exists; otherwise the first existing candidate wins and the user-level
// path is reported when none does.
func locate(explicit, executable string) (configSource, error) {
	if strings.TrimSpace(explicit) != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return configSource{}, err
		}
		exists, err := isRegularFile(path)
		return configSource{path: path, exists: exists}, err
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return configSource{}, err
	}
	projectPath, err := filepath.Abs(FileName)
	if err != nil {
		return configSource{}, err
	}
	candidates := []string{userPath, projectPath}
	if executable != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(executable), FileName)}, candidates...)
	}
	for _, candidate := range candidates {
		if ok, _ := isRegularFile(candidate); ok {
			return configSource{path: candidate, exists: true}, nil
		}
	}
	return configSource{path: userPath}, nil
}

func isRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// EnsureDirectories creates the directories the authoring CLI writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.HashesDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Audit.Enabled && c.Paths.AuditDB != "" {
		if err := os.MkdirAll(filepath.Dir(c.Paths.AuditDB), 0o755); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
	}
	return nil
}

// ScratchRoot returns the directory under which launchers create extraction
// directories.
func (c *Config) ScratchRoot() string {
	if c.Paths.ScratchDir != "" {
		return c.Paths.ScratchDir
	}
	return os.TempDir()
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(pathValue, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = home + rest
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
