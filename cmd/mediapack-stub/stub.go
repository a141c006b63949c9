package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"mediapack/internal/config"
	"mediapack/internal/device"
	"mediapack/internal/launcher"
	"mediapack/internal/license"
	"mediapack/internal/logging"
)

const stubLongHelp = `Play the media packed into this executable.

Containers with an allowlist only play while a listed USB device is attached.
Devices are matched by hashing their serials with license.salt, read on the
playing machine from mediapack.toml beside this executable, the user config
or MEDIAPACK_LICENSE_SALT. A container packed under a non-default salt
refuses every device unless the same salt is configured here, so ship a
mediapack.toml with that salt next to the container.

Exit codes: 0 played, 2 device not allowed, 3 corrupt container,
4 wrong password, 5 corrupt archive, 10 no playable media, 11 player failed,
99 internal error.`

type stubFlags struct {
	password   string
	configPath string
	verbose    bool
}

// execute runs the launcher and returns its process exit code. A non-nil
// error is a usage or setup problem reported before the state machine ran.
func execute(args []string) (int, error) {
	var flags stubFlags
	code := int(launcher.ExitInternal)

	cmd := &cobra.Command{
		Use:           filepath.Base(os.Args[0]),
		Short:         "Play the media packed into this executable",
		Long:          stubLongHelp,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			result, err := runLauncher(ctx, flags)
			if err != nil {
				return err
			}
			code = int(result.ExitCode)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.password, "password", "", "Password for an encrypted payload")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log every launcher state")
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return int(launcher.ExitInternal), err
	}
	return code, nil
}

func runLauncher(ctx context.Context, flags stubFlags) (launcher.Result, error) {
	executable, err := os.Executable()
	if err != nil {
		return launcher.Result{}, fmt.Errorf("locate own executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	cfg, _, _, err := config.LoadForExecutable(strings.TrimSpace(flags.configPath), executable)
	if err != nil {
		return launcher.Result{}, fmt.Errorf("load config: %w", err)
	}

	logger, err := newStubLogger(cfg, flags.verbose)
	if err != nil {
		return launcher.Result{}, err
	}

	l := launcher.New(launcherOptions(cfg, executable, flags.password, logger))
	return l.Run(ctx), nil
}

// newStubLogger writes to stderr only; a launcher never leaves a log file
// next to the media it plays.
func newStubLogger(cfg *config.Config, verbose bool) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Writer: os.Stderr,
	})
}

func launcherOptions(cfg *config.Config, executable, password string, logger *slog.Logger) launcher.Options {
	system := device.NewSystemProvider()
	opts := launcher.Options{
		Executable: executable,
		Hasher:     license.NewHasher(cfg.License.Salt),
		Devices:    system,
		Passwords: launcher.Chain{
			launcher.Static(password),
			launcher.Env(cfg.Launcher.PasswordEnv),
			launcher.NewTerminal(),
		},
		Opener:        launcher.SystemOpener{},
		ScratchRoot:   cfg.ScratchRoot(),
		Extensions:    cfg.Launcher.MediaExtensions,
		OpenAll:       cfg.Launcher.OpenAll,
		WaitForPlayer: cfg.Launcher.WaitForPlayer,
		Logger:        logger,
	}
	if cfg.License.ProbeHostDevice {
		opts.HostProbe = system
	}
	if len(cfg.Launcher.PlayerCommand) > 0 {
		opts.Opener = launcher.CommandOpener{Argv: cfg.Launcher.PlayerCommand}
	}
	return opts
}
