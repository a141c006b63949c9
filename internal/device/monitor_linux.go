//go:build linux

package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"mediapack/internal/logging"
)

// Event reports a USB disk arriving or leaving.
type Event struct {
	Action   string
	Device   string
	Identity Identity
}

// Monitor listens for udev netlink events and reports USB disks as they are
// attached or removed.
type Monitor struct {
	logger  *slog.Logger
	handler func(Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewMonitor creates a monitor that calls handler for every matching event.
func NewMonitor(logger *slog.Logger, handler func(Event)) *Monitor {
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "device-monitor"),
		handler: handler,
	}
}

// Start connects to the udev netlink socket and begins delivering events.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connect netlink socket: %w", err)
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	quit, done := m.quit, m.done
	go m.monitorLoop(ctx, conn, quit, done)

	m.logger.Info("device monitor started",
		logging.String(logging.FieldEventType, "device_monitor_started"),
	)
	return nil
}

// Stop shuts down the monitor and waits for the event loop to exit.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	done := m.done
	conn := m.conn
	m.quit, m.done, m.conn = nil, nil, nil
	m.running = false
	m.mu.Unlock()

	<-done
	_ = conn.Close()

	m.logger.Info("device monitor stopped",
		logging.String(logging.FieldEventType, "device_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "device_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device events may be missed"),
			)
		}
	}
}

// buildMatcher matches whole-disk add/remove events on the USB bus.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
			"ID_BUS":    "usb",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	event, ok := eventFromUEvent(uevent)
	if !ok {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}

	m.logger.Info("usb disk event",
		logging.String(logging.FieldEventType, "device_"+event.Action),
		logging.String("device", event.Device),
		logging.String("caption", event.Identity.Caption),
		logging.Bool("has_serial", event.Identity.HardwareSerial != ""),
	)
	if m.handler != nil {
		m.handler(event)
	}
}

func eventFromUEvent(uevent netlink.UEvent) (Event, bool) {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return Event{}, false
		}
		parts := strings.Split(devpath, "/")
		devname = "/dev/" + parts[len(parts)-1]
	}

	serial := strings.TrimSpace(uevent.Env["ID_SERIAL_SHORT"])
	if serial == "" {
		serial = strings.TrimSpace(uevent.Env["ID_SERIAL"])
	}
	caption := strings.TrimSpace(strings.Join(strings.Fields(uevent.Env["ID_VENDOR"]+" "+uevent.Env["ID_MODEL"]), " "))
	caption = strings.ReplaceAll(caption, "_", " ")
	if caption == "" {
		caption = DefaultCaption
	}

	return Event{
		Action:   string(uevent.Action),
		Device:   devname,
		Identity: Identity{HardwareSerial: serial, Caption: caption},
	}, true
}
