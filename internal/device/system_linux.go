//go:build linux

package device

// SystemProvider enumerates devices and resolves host paths on this platform.
type SystemProvider interface {
	Provider
	HostProber
}

// NewSystemProvider returns the lsblk-backed provider.
func NewSystemProvider() SystemProvider {
	return NewLsblk()
}
