package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mediapack/internal/audit"
	"mediapack/internal/config"
	"mediapack/internal/device"
	"mediapack/internal/logging"
)

// auditCloseTimeout bounds how long a command waits for queued audit rows.
const auditCloseTimeout = 5 * time.Second

// newDeviceProvider is swapped in tests.
var newDeviceProvider = device.NewSystemProvider

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPath is the --config value, empty when unset.
func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err == nil {
			err = cfg.EnsureDirectories()
		}
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openAuditRecorder returns the recorder packing commands hand to the packer
// and a function that drains it. An unavailable datastore degrades to a no-op
// recorder so packing still succeeds.
func (c *commandContext) openAuditRecorder(logger *slog.Logger) (audit.Recorder, func()) {
	cfg, err := c.ensureConfig()
	if err != nil || !cfg.Audit.Enabled {
		return audit.Nop{}, func() {}
	}
	store, err := audit.Open(cfg.Paths.AuditDB)
	if err != nil {
		logging.WarnWithContext(logger, "audit datastore unavailable", "audit_open_failed",
			logging.String("path", cfg.Paths.AuditDB),
			logging.Error(err),
			logging.String(logging.FieldImpact, "issued hashes from this session are not recorded"),
			logging.String(logging.FieldErrorHint, "check paths.audit_db or disable audit.enabled"),
		)
		return audit.Nop{}, func() {}
	}
	recorder := audit.NewAsync(store, cfg.Audit.QueueSize, logger)
	return recorder, func() { drainAudit(recorder, store, auditCloseTimeout, logger) }
}

type drainer interface {
	Close(ctx context.Context) error
}

// drainAudit waits up to timeout for queued rows. The store is closed only
// once the writer has finished; on timeout it is left open for the process
// exit to reclaim so in-flight inserts are not cut off.
func drainAudit(recorder drainer, store io.Closer, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := recorder.Close(ctx); err != nil {
		logging.WarnWithContext(logger, "audit writer still busy at exit", "audit_drain_timeout",
			logging.Duration("timeout", timeout),
			logging.Error(err),
			logging.String(logging.FieldImpact, "hashes still queued may be missing from local audit history"),
		)
		return
	}
	if err := store.Close(); err != nil {
		logger.Debug("audit store close", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
