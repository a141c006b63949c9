package license

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"mediapack/internal/device"
)

// Hasher derives allowlist entries from hardware serials under one salt.
type Hasher struct {
	salt string
}

// NewHasher returns a hasher bound to salt. Every packer and launcher that
// should agree on an allowlist must use the same salt.
func NewHasher(salt string) Hasher {
	return Hasher{salt: salt}
}

// Hash returns lowercase hex SHA-256(salt ‖ serial).
func (h Hasher) Hash(serial string) string {
	sum := sha256.Sum256([]byte(h.salt + serial))
	return hex.EncodeToString(sum[:])
}

// Build hashes every identity's serial into a new allowlist. Identities with
// a blank serial are skipped.
func (h Hasher) Build(identities []device.Identity) *Allowlist {
	a := &Allowlist{index: make(map[string]struct{}, len(identities))}
	for _, identity := range identities {
		serial := strings.TrimSpace(identity.HardwareSerial)
		if serial == "" {
			continue
		}
		a.add(h.Hash(serial))
	}
	return a
}

// Validate reports whether any observed identity hashes to an allowlist
// entry. An empty allowlist or an empty observation always fails.
func (h Hasher) Validate(allowlist *Allowlist, observed []device.Identity) bool {
	_, ok := h.Match(allowlist, observed)
	return ok
}

// Match is Validate that also returns the first matching identity.
func (h Hasher) Match(allowlist *Allowlist, observed []device.Identity) (device.Identity, bool) {
	if allowlist.Len() == 0 || len(observed) == 0 {
		return device.Identity{}, false
	}
	for _, identity := range observed {
		serial := strings.TrimSpace(identity.HardwareSerial)
		if serial == "" {
			continue
		}
		if allowlist.Contains(h.Hash(serial)) {
			return identity, true
		}
	}
	return device.Identity{}, false
}
