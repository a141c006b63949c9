package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mediapack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "mediapack", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "mediapack", "Done"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, "mediapack", "Hashes"); cfg.Paths.HashesDir != want {
		t.Fatalf("unexpected hashes dir: got %q want %q", cfg.Paths.HashesDir, want)
	}
	if cfg.License.Salt != config.Default().License.Salt {
		t.Fatalf("unexpected salt %q", cfg.License.Salt)
	}
	if cfg.Packer.Workers != runtime.NumCPU() {
		t.Fatalf("expected workers to default to CPU count, got %d", cfg.Packer.Workers)
	}
	if cfg.Packer.OnCollision != config.CollisionSuffix {
		t.Fatalf("unexpected collision policy %q", cfg.Packer.OnCollision)
	}
	if strings.Join(cfg.Launcher.MediaExtensions, ",") != ".mp4,.mkv,.avi" {
		t.Fatalf("unexpected media extensions %v", cfg.Launcher.MediaExtensions)
	}
	if cfg.ScratchRoot() != os.TempDir() {
		t.Fatalf("expected scratch root to default to temp dir, got %q", cfg.ScratchRoot())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.HashesDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.AuditDB)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/out"
scratch_dir = "/var/tmp/mp"

[packer]
template = "~/stub/player.exe"
workers = 3
on_collision = "OVERWRITE"
output_extension = "exe"

[launcher]
media_extensions = ["MP4", ".webm", "mp4", " "]
player_command = ["mpv", "", "--fs"]
wait_for_player = true

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.ScratchRoot() != "/var/tmp/mp" {
		t.Fatalf("unexpected scratch root %q", cfg.ScratchRoot())
	}
	if cfg.Packer.Template != filepath.Join(tempHome, "stub", "player.exe") {
		t.Fatalf("unexpected template %q", cfg.Packer.Template)
	}
	if cfg.Packer.Workers != 3 || cfg.Packer.OnCollision != config.CollisionOverwrite || cfg.Packer.OutputExtension != ".exe" {
		t.Fatalf("unexpected packer section %+v", cfg.Packer)
	}
	if got := strings.Join(cfg.Launcher.MediaExtensions, ","); got != ".mp4,.webm" {
		t.Fatalf("unexpected media extensions %q", got)
	}
	if got := strings.Join(cfg.Launcher.PlayerCommand, " "); got != "mpv --fs" {
		t.Fatalf("unexpected player command %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section %+v", cfg.Logging)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEDIAPACK_LICENSE_SALT", "rotated-salt")
	t.Setenv("MEDIAPACK_TEMPLATE", "/opt/stub/player")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.License.Salt != "rotated-salt" {
		t.Fatalf("expected salt from env, got %q", cfg.License.Salt)
	}
	if cfg.Packer.Template != "/opt/stub/player" {
		t.Fatalf("expected template from env, got %q", cfg.Packer.Template)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "collision", content: "[packer]\non_collision = \"rename\"\n", want: "packer.on_collision"},
		{name: "empty salt", content: "[license]\nsalt = \"  \"\n", want: "license.salt"},
		{name: "log format", content: "[logging]\nformat = \"xml\"\n", want: "logging.format"},
		{name: "log level", content: "[logging]\nlevel = \"trace\"\n", want: "logging.level"},
		{name: "workers", content: "[packer]\nworkers = 1000\n", want: "packer.workers"},
		{name: "unknown key", content: "[packer]\ntemplat = \"x\"\n", want: "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestLoadForExecutablePrefersAdjacentFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	exe := filepath.Join(dir, "movie.exe")
	adjacent := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(adjacent, []byte("[launcher]\nopen_all = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.LoadForExecutable("", exe)
	if err != nil {
		t.Fatalf("LoadForExecutable returned error: %v", err)
	}
	if !exists || resolved != adjacent {
		t.Fatalf("expected adjacent config, got %q exists=%v", resolved, exists)
	}
	if !cfg.Launcher.OpenAll {
		t.Fatal("expected open_all from adjacent config")
	}

	other := t.TempDir()
	cfg, _, exists, err = config.LoadForExecutable("", filepath.Join(other, "movie.exe"))
	if err != nil {
		t.Fatalf("LoadForExecutable returned error: %v", err)
	}
	if exists || cfg.Launcher.OpenAll {
		t.Fatal("expected defaults without an adjacent config")
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid toml: %v", err)
	}

	fromSample, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	fromDefaults, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load defaults returned error: %v", err)
	}
	if fromSample.Paths != fromDefaults.Paths {
		t.Fatalf("sample paths %+v differ from defaults %+v", fromSample.Paths, fromDefaults.Paths)
	}
	if fromSample.License != fromDefaults.License || fromSample.Packer != fromDefaults.Packer || fromSample.Audit != fromDefaults.Audit {
		t.Fatal("sample config drifted from defaults")
	}
}
