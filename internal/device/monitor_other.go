//go:build !linux

package device

import (
	"context"
	"errors"
	"log/slog"
)

// Event reports a USB disk arriving or leaving.
type Event struct {
	Action   string
	Device   string
	Identity Identity
}

// Monitor is unavailable on this platform.
type Monitor struct{}

func NewMonitor(*slog.Logger, func(Event)) *Monitor { return &Monitor{} }

func (m *Monitor) Start(context.Context) error {
	return errors.New("device monitoring requires udev")
}

func (m *Monitor) Stop() {}

func (m *Monitor) Running() bool { return false }
