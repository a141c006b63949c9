package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const lsblkColumns = "NAME,PATH,TYPE,SERIAL,MODEL,VENDOR,TRAN,RM,HOTPLUG,MOUNTPOINT"

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Lsblk enumerates block devices through `lsblk -J`.
type Lsblk struct {
	Binary  string
	Timeout time.Duration
	Run     Runner
}

// NewLsblk returns a provider using the lsblk found on PATH.
func NewLsblk() *Lsblk {
	return &Lsblk{Binary: "lsblk", Timeout: 10 * time.Second, Run: execRunner}
}

func (l *Lsblk) ListRemovable(ctx context.Context) ([]Identity, error) {
	disks, err := l.query(ctx)
	if err != nil {
		return nil, err
	}
	return identitiesFor(disks, true), nil
}

// IdentityForPath considers every disk, removable or not, so an external
// drive that reports itself as fixed still resolves.
func (l *Lsblk) IdentityForPath(ctx context.Context, path string) (Identity, bool, error) {
	disks, err := l.query(ctx)
	if err != nil {
		return Identity{}, false, err
	}
	identity, ok := MatchPath(identitiesFor(disks, false), path)
	return identity, ok, nil
}

func (l *Lsblk) query(ctx context.Context) ([]lsblkDevice, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}
	run := l.Run
	if run == nil {
		run = execRunner
	}
	binary := strings.TrimSpace(l.Binary)
	if binary == "" {
		binary = "lsblk"
	}
	output, err := run(ctx, binary, "-J", "-o", lsblkColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to run lsblk: %w", err)
	}
	return parseLsblkJSON(output)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

type lsblkReport struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Type       string        `json:"type"`
	Serial     *string       `json:"serial"`
	Model      *string       `json:"model"`
	Vendor     *string       `json:"vendor"`
	Tran       *string       `json:"tran"`
	RM         flexBool      `json:"rm"`
	Hotplug    flexBool      `json:"hotplug"`
	MountPoint *string       `json:"mountpoint"`
	Children   []lsblkDevice `json:"children"`
}

// flexBool accepts both the boolean and the "0"/"1" string encodings that
// different lsblk releases emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", `"1"`, "1", `"true"`:
		*b = true
	case "false", `"0"`, "0", `"false"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("lsblk: unexpected boolean value %s", data)
	}
	return nil
}

// parseLsblkJSON decodes `lsblk -J` output into top-level devices.
func parseLsblkJSON(data []byte) ([]lsblkDevice, error) {
	var report lsblkReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}
	return report.BlockDevices, nil
}

func identitiesFor(disks []lsblkDevice, removableOnly bool) []Identity {
	var out []Identity
	for _, disk := range disks {
		if disk.Type != "" && disk.Type != "disk" {
			continue
		}
		if removableOnly && !disk.removable() {
			continue
		}
		serial := str(disk.Serial)
		caption := strings.TrimSpace(strings.Join(strings.Fields(str(disk.Vendor)+" "+str(disk.Model)), " "))
		if caption == "" {
			caption = DefaultCaption
		}

		mounts := disk.mountPoints(nil)
		if len(mounts) == 0 {
			// Still listed so the serial can be matched without a mounted volume.
			out = append(out, Identity{HardwareSerial: serial, Caption: caption})
			continue
		}
		for _, mount := range mounts {
			out = append(out, Identity{VolumeRoot: mount, HardwareSerial: serial, Caption: caption})
		}
	}
	return out
}

func (d lsblkDevice) removable() bool {
	return bool(d.RM) || bool(d.Hotplug) || strings.EqualFold(str(d.Tran), "usb")
}

func (d lsblkDevice) mountPoints(dst []string) []string {
	if mp := str(d.MountPoint); mp != "" && !strings.HasPrefix(mp, "[") {
		dst = append(dst, mp)
	}
	for _, child := range d.Children {
		dst = child.mountPoints(dst)
	}
	return dst
}

func str(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
