package packer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediapack/internal/archive"
	"mediapack/internal/audit"
	"mediapack/internal/container"
	"mediapack/internal/envelope"
	"mediapack/internal/failure"
	"mediapack/internal/fileutil"
	"mediapack/internal/license"
	"mediapack/internal/logging"
	"mediapack/internal/preflight"
)

// Options configures a packing session.
type Options struct {
	// Template is the launcher executable every output starts from.
	Template string
	// Password seals payloads when non-empty.
	Password string
	// Allowlist is embedded in every output when non-empty.
	Allowlist *license.Allowlist
	// Workers bounds parallel jobs; values below one mean one.
	Workers int
	// Subject labels the session in the audit history.
	Subject string
	// Audit receives each embedded hash once per session.
	Audit audit.Recorder
	// WorkDir holds intermediate archives; defaults to os.TempDir.
	WorkDir string
	Logger  *slog.Logger
}

// Result reports one job's outcome.
type Result struct {
	Job          Job
	Output       string
	PayloadBytes int64
	Encrypted    bool
	Licensed     bool
	Duration     time.Duration
	Err          error
}

// Packer runs packing jobs against one template and allowlist.
type Packer struct {
	opts      Options
	hashes    []string
	sessionID string
	logger    *slog.Logger
}

// New validates the template and prepares a session.
func New(opts Options) (*Packer, error) {
	opts.Template = strings.TrimSpace(opts.Template)
	if opts.Template == "" {
		return nil, failure.Wrap(failure.ErrConfiguration, "packer", "init", "launcher template not configured", nil)
	}
	if check := preflight.CheckTemplate(opts.Template); !check.Passed {
		return nil, failure.Wrap(failure.ErrConfiguration, "packer", "init", "launcher template "+opts.Template+": "+check.Detail, nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Audit == nil {
		opts.Audit = audit.Nop{}
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		opts.WorkDir = os.TempDir()
	}
	sessionID := uuid.NewString()
	return &Packer{
		opts:      opts,
		hashes:    opts.Allowlist.Entries(),
		sessionID: sessionID,
		logger:    logging.WithSession(logging.NewComponentLogger(opts.Logger, "packer"), sessionID),
	}, nil
}

// SessionID identifies this packing session in logs.
func (p *Packer) SessionID() string { return p.sessionID }

// Pack runs jobs with at most Options.Workers in flight. Results come back in
// job order; a failed job never stops the others. Once any job succeeds, the
// session allowlist is handed to the audit recorder.
func (p *Packer) Pack(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = p.PackOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Err == nil {
			succeeded++
		}
	}
	p.logger.Info("packing session finished",
		logging.Int("jobs", len(jobs)),
		logging.Int("succeeded", succeeded),
		logging.Int("failed", len(jobs)-succeeded),
		logging.String(logging.FieldEventType, "session_complete"),
	)
	if succeeded > 0 {
		p.recordAudit()
	}
	return results
}

func (p *Packer) recordAudit() {
	if len(p.hashes) == 0 {
		return
	}
	p.opts.Audit.Record(p.opts.Subject, time.Now(), p.hashes...)
}

// PackOne builds a single container.
func (p *Packer) PackOne(ctx context.Context, job Job) Result {
	start := time.Now()
	res := Result{Job: job, Output: job.Output, Encrypted: p.opts.Password != "", Licensed: len(p.hashes) > 0}
	logger := p.logger.With(logging.String(logging.FieldOutput, job.Output))

	res.PayloadBytes, res.Err = p.pack(ctx, job)
	res.Duration = time.Since(start)
	if res.Err != nil {
		logging.ErrorWithContext(logger, "packing failed", "pack_failed",
			logging.Strings(logging.FieldInput, job.Inputs),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, hintFor(res.Err)),
		)
		return res
	}
	logger.Info("container written",
		logging.Strings(logging.FieldInput, job.Inputs),
		logging.Int64("payload_bytes", res.PayloadBytes),
		logging.Bool("encrypted", res.Encrypted),
		logging.Bool("licensed", res.Licensed),
		logging.Duration("duration", res.Duration),
		logging.String(logging.FieldEventType, "pack_complete"),
	)
	return res
}

func (p *Packer) pack(ctx context.Context, job Job) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(job.Output) == "" {
		return 0, failure.Wrap(failure.ErrConfiguration, "packer", "pack", "output path is empty", nil)
	}
	outDir := filepath.Dir(job.Output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, failure.Wrap(failure.ErrIO, "packer", "pack", "create output directory", err)
	}
	if err := fileutil.CheckWritable(outDir); err != nil {
		return 0, failure.Wrap(failure.ErrIO, "packer", "pack", outDir+" is not writable", err)
	}

	staged, err := os.CreateTemp(p.opts.WorkDir, "mediapack-payload-*.zip")
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "packer", "pack", "create staging archive", err)
	}
	defer func() {
		_ = staged.Close()
		_ = os.Remove(staged.Name())
	}()

	if _, err := archive.Build(staged, job.Inputs); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size, err := staged.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "packer", "pack", "size staging archive", err)
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return 0, failure.Wrap(failure.ErrIO, "packer", "pack", "rewind staging archive", err)
	}

	var payload io.Reader = staged
	if p.opts.Password != "" {
		plain, err := io.ReadAll(staged)
		if err != nil {
			return 0, failure.Wrap(failure.ErrIO, "packer", "pack", "read staging archive", err)
		}
		sealed, err := envelope.Encrypt(plain, p.opts.Password)
		if err != nil {
			return 0, err
		}
		payload = bytes.NewReader(sealed)
		size = int64(len(sealed))
	}

	if _, err := container.Write(p.opts.Template, job.Output, payload, p.hashes); err != nil {
		return 0, err
	}
	return size, nil
}

func hintFor(err error) string {
	switch failure.Kind(err) {
	case failure.ErrConfiguration:
		return "check packer settings and the launcher template"
	case failure.ErrIO:
		return "check that every input exists and the output directory is writable"
	default:
		return "check logs for details"
	}
}
