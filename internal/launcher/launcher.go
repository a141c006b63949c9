package launcher

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mediapack/internal/archive"
	"mediapack/internal/container"
	"mediapack/internal/device"
	"mediapack/internal/envelope"
	"mediapack/internal/failure"
	"mediapack/internal/license"
	"mediapack/internal/logging"
	"mediapack/internal/scratch"
)

// Options configures a launcher run.
type Options struct {
	// Executable is the container to unpack, normally os.Executable().
	Executable string
	Hasher     license.Hasher
	Devices    device.Provider
	// HostProbe, when set, is consulted after Devices fails to match: the
	// device holding Executable is checked against the allowlist too.
	HostProbe   device.HostProber
	Passwords   PasswordSource
	Opener      Opener
	ScratchRoot string
	Extensions  []string
	OpenAll     bool
	// WaitForPlayer waits for a started player and removes the scratch
	// directory before returning.
	WaitForPlayer bool
	Logger        *slog.Logger
}

// Result reports how a run ended.
type Result struct {
	State    State
	ExitCode ExitCode
	Err      error
	Scratch  string
	Media    []string
	// Device is the identity that satisfied the allowlist, if one was needed.
	Device *device.Identity
}

// Launcher unpacks and plays one container.
type Launcher struct {
	opts   Options
	logger *slog.Logger
}

// New fills defaults for unset collaborators.
func New(opts Options) *Launcher {
	if opts.Devices == nil {
		opts.Devices = device.Empty{}
	}
	if opts.Passwords == nil {
		opts.Passwords = Chain{}
	}
	if opts.Opener == nil {
		opts.Opener = SystemOpener{}
	}
	if strings.TrimSpace(opts.ScratchRoot) == "" {
		opts.ScratchRoot = os.TempDir()
	}
	return &Launcher{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "launcher")}
}

type run struct {
	*Launcher
	ctx     context.Context
	res     Result
	box     *container.Container
	sealed  bool
	plain   []byte
	dir     *scratch.Dir
	files   []string
	process Process
}

// Run executes the launch state machine. It never panics on bad input; every
// failure is reported through Result.ExitCode.
func (l *Launcher) Run(ctx context.Context) Result {
	r := &run{Launcher: l, ctx: ctx}
	defer r.closeContainer()

	steps := []struct {
		state State
		fn    func() error
	}{
		{StateSweep, r.sweep},
		{StateLocateTrailer, r.locate},
		{StateLicenseCheck, r.checkLicense},
		{StateReadPayload, r.readPayload},
		{StateDecryptIfNeeded, r.decryptIfNeeded},
		{StateExtractArchive, r.extract},
		{StateSelectMedia, r.selectMedia},
		{StateLaunch, r.launch},
		{StateCleanup, r.cleanup},
	}
	r.res.State = StateStart
	for _, step := range steps {
		r.res.State = step.state
		r.logger.Debug("launcher state", logging.String(logging.FieldState, step.state.String()))
		if err := ctx.Err(); err != nil {
			return r.fail(err)
		}
		if err := step.fn(); err != nil {
			return r.fail(err)
		}
	}
	r.res.State = StateTerminal
	r.res.ExitCode = ExitOK
	r.logger.Info("launch complete",
		logging.Strings("media", r.res.Media),
		logging.String(logging.FieldScratchDir, r.res.Scratch),
		logging.Int(logging.FieldExitCode, int(ExitOK)),
		logging.String(logging.FieldEventType, "launch_complete"),
	)
	return r.res
}

func (r *run) fail(err error) Result {
	r.res.Err = err
	r.res.ExitCode = ExitCodeFor(err)
	if r.dir != nil && r.process == nil {
		if rmErr := r.dir.Remove(); rmErr != nil {
			r.logger.Debug("scratch cleanup after failure deferred", logging.Error(rmErr))
		}
	}
	logging.ErrorWithContext(r.logger, "launch failed", "launch_failed",
		logging.String(logging.FieldState, r.res.State.String()),
		logging.Int(logging.FieldExitCode, int(r.res.ExitCode)),
		logging.String("exit_reason", r.res.ExitCode.String()),
		logging.Error(err),
	)
	return r.res
}

func (r *run) closeContainer() {
	if r.box != nil {
		_ = r.box.Close()
	}
}

func (r *run) sweep() error {
	result := scratch.Sweep(r.ctx, r.opts.ScratchRoot, r.logger)
	if len(result.Removed) > 0 {
		r.logger.Debug("stale scratch swept", logging.Int("removed", len(result.Removed)))
	}
	return nil
}

func (r *run) locate() error {
	if strings.TrimSpace(r.opts.Executable) == "" {
		return failure.Wrap(failure.ErrIO, "launcher", "locate", "executable path unknown", nil)
	}
	box, err := container.Open(r.opts.Executable)
	if err != nil {
		return err
	}
	r.box = box
	return nil
}

func (r *run) checkLicense() error {
	if !r.box.HasLicense {
		r.logger.Debug("no license block; playback unrestricted")
		return nil
	}
	allowlist, err := license.New(r.box.Hashes...)
	if err != nil {
		return failure.Wrap(failure.ErrMalformedContainer, "launcher", "license", "embedded hash list", err)
	}

	observed, err := r.opts.Devices.ListRemovable(r.ctx)
	if err != nil {
		logging.WarnWithContext(r.logger, "device enumeration failed", "device_list_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "only the host device fallback can authorise playback"),
		)
	}
	if identity, ok := r.opts.Hasher.Match(allowlist, observed); ok {
		r.res.Device = &identity
		return nil
	}

	if r.opts.HostProbe != nil {
		identity, found, err := r.opts.HostProbe.IdentityForPath(r.ctx, r.opts.Executable)
		if err != nil {
			r.logger.Debug("host device probe failed", logging.Error(err))
		}
		if found {
			if match, ok := r.opts.Hasher.Match(allowlist, []device.Identity{identity}); ok {
				r.res.Device = &match
				return nil
			}
		}
	}
	return failure.Wrap(failure.ErrLicenseDenied, "launcher", "license",
		"no attached device matches the embedded allowlist", nil)
}

func (r *run) readPayload() error {
	head := make([]byte, len(archive.Signature))
	n, err := io.ReadFull(r.box.PayloadReader(), head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return failure.Wrap(failure.ErrMalformedContainer, "launcher", "read payload", "", err)
	}
	r.sealed = !archive.HasSignature(head[:n])
	return nil
}

func (r *run) decryptIfNeeded() error {
	if !r.sealed {
		return nil
	}
	password, ok, err := r.opts.Passwords.Password(r.ctx)
	if err != nil {
		return failure.Wrap(failure.ErrAuthentication, "launcher", "decrypt", "obtain password", err)
	}
	if !ok {
		return failure.Wrap(failure.ErrAuthentication, "launcher", "decrypt", "payload is encrypted and no password was supplied", nil)
	}
	sealed, err := r.box.LoadPayload()
	if err != nil {
		return err
	}
	start := time.Now()
	plain, err := envelope.Decrypt(sealed, password)
	if err != nil {
		return err
	}
	r.logger.Debug("payload decrypted", logging.Duration("duration", time.Since(start)))
	r.plain = plain
	return nil
}

func (r *run) extract() error {
	dir, err := scratch.Create(r.opts.ScratchRoot)
	if err != nil {
		return err
	}
	r.dir = dir
	r.res.Scratch = dir.Path

	var (
		src  io.ReaderAt
		size int64
	)
	if r.plain != nil {
		src, size = bytes.NewReader(r.plain), int64(len(r.plain))
	} else {
		src, size = r.box.PayloadReader(), r.box.PayloadLength
	}
	files, err := archive.Extract(src, size, dir.Path)
	if err != nil {
		return err
	}
	r.plain = nil
	r.files = files
	r.logger.Debug("payload extracted",
		logging.String(logging.FieldScratchDir, dir.Path),
		logging.Int("files", len(files)),
	)
	return nil
}

func (r *run) selectMedia() error {
	media := SelectMedia(r.files, r.opts.Extensions, r.opts.OpenAll)
	if len(media) == 0 {
		return failure.Wrap(failure.ErrNoPlayableMedia, "launcher", "select", "no extracted file has a playable extension", nil)
	}
	r.res.Media = media
	return nil
}

func (r *run) launch() error {
	process, err := r.opts.Opener.Open(r.ctx, r.res.Media)
	if err != nil {
		return failure.Wrap(failure.ErrLaunch, "launcher", "launch", r.res.Media[0], err)
	}
	r.process = process
	return nil
}

func (r *run) cleanup() error {
	if r.opts.WaitForPlayer && r.process != nil {
		if err := r.process.Wait(); err != nil {
			r.logger.Debug("player exited with error", logging.Error(err))
		}
		if err := r.dir.Remove(); err != nil {
			logging.WarnWithContext(r.logger, "scratch cleanup deferred", "scratch_cleanup_deferred",
				logging.String(logging.FieldScratchDir, r.dir.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "removed on next launch"),
			)
		}
		return nil
	}
	if err := r.dir.Release(); err != nil {
		r.logger.Debug("release scratch lock", logging.Error(err))
	}
	return nil
}
