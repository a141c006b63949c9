package device

import (
	"context"
	"path/filepath"
	"strings"
)

// DefaultCaption labels devices that report no vendor or model.
const DefaultCaption = "USB Drive"

// Identity describes one removable volume. HardwareSerial is the only field
// fed to allowlist hashing; a device without a mounted volume has an empty
// VolumeRoot.
type Identity struct {
	VolumeRoot     string
	HardwareSerial string
	Caption        string
}

// Provider enumerates removable storage devices currently attached.
type Provider interface {
	ListRemovable(ctx context.Context) ([]Identity, error)
}

// HostProber resolves the device that holds a filesystem path.
type HostProber interface {
	IdentityForPath(ctx context.Context, path string) (Identity, bool, error)
}

// Static is a fixed identity list, used in tests and for explicit serial
// overrides on the command line.
type Static []Identity

func (s Static) ListRemovable(context.Context) ([]Identity, error) {
	out := make([]Identity, len(s))
	copy(out, s)
	return out, nil
}

func (s Static) IdentityForPath(_ context.Context, path string) (Identity, bool, error) {
	identity, ok := MatchPath(s, path)
	return identity, ok, nil
}

// Empty reports no devices. It backs platforms without an enumeration
// mechanism.
type Empty struct{}

func (Empty) ListRemovable(context.Context) ([]Identity, error) { return nil, nil }

func (Empty) IdentityForPath(context.Context, string) (Identity, bool, error) {
	return Identity{}, false, nil
}

// MatchPath returns the identity whose VolumeRoot is the longest directory
// prefix of path.
func MatchPath(identities []Identity, path string) (Identity, bool) {
	path = filepath.Clean(path)
	var (
		best    Identity
		bestLen = -1
	)
	for _, identity := range identities {
		root := strings.TrimSpace(identity.VolumeRoot)
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if !withinRoot(root, path) {
			continue
		}
		if len(root) > bestLen {
			best = identity
			bestLen = len(root)
		}
	}
	return best, bestLen >= 0
}

// FilterByRoots keeps identities whose VolumeRoot is one of roots. An empty
// roots list keeps everything.
func FilterByRoots(identities []Identity, roots []string) []Identity {
	if len(roots) == 0 {
		return identities
	}
	want := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		want[filepath.Clean(strings.TrimSpace(root))] = struct{}{}
	}
	var out []Identity
	for _, identity := range identities {
		if identity.VolumeRoot == "" {
			continue
		}
		if _, ok := want[filepath.Clean(identity.VolumeRoot)]; ok {
			out = append(out, identity)
		}
	}
	return out
}

func withinRoot(root, path string) bool {
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return filepath.IsLocal(rel)
}
