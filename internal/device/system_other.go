//go:build !linux

package device

// SystemProvider enumerates devices and resolves host paths on this platform.
type SystemProvider interface {
	Provider
	HostProber
}

// NewSystemProvider reports no devices; restricted containers therefore deny
// playback on platforms without an enumeration backend.
func NewSystemProvider() SystemProvider {
	return Empty{}
}
