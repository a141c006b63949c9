package license

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediapack/internal/failure"
	"mediapack/internal/fileutil"
	"mediapack/internal/textutil"
)

// HashLength is the hex length of a SHA-256 digest.
const HashLength = 64

// ExportFileName is the file written under <hashes_dir>/<subject>/.
const ExportFileName = "hashes.json"

// Allowlist is an ordered, de-duplicated set of lowercase hex digests. It is
// immutable once built and safe to share across goroutines.
type Allowlist struct {
	entries []string
	index   map[string]struct{}
}

// New validates and normalises hashes into an Allowlist. Duplicates (compared
// case-insensitively) keep their first position.
func New(hashes ...string) (*Allowlist, error) {
	a := &Allowlist{index: make(map[string]struct{}, len(hashes))}
	for i, hash := range hashes {
		normalized, err := NormalizeHash(hash)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConfiguration, "license", "allowlist", fmt.Sprintf("entry %d", i), err)
		}
		a.add(normalized)
	}
	return a, nil
}

func (a *Allowlist) add(hash string) bool {
	if _, ok := a.index[hash]; ok {
		return false
	}
	a.index[hash] = struct{}{}
	a.entries = append(a.entries, hash)
	return true
}

// Len returns the number of entries; a nil allowlist is empty.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Entries returns a copy of the hashes in insertion order.
func (a *Allowlist) Entries() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.entries))
	copy(out, a.entries)
	return out
}

// Contains reports whether hash is listed, ignoring case.
func (a *Allowlist) Contains(hash string) bool {
	if a == nil {
		return false
	}
	_, ok := a.index[strings.ToLower(strings.TrimSpace(hash))]
	return ok
}

// EncodeJSON renders the allowlist as an indented JSON array. An empty list
// encodes as [].
func (a *Allowlist) EncodeJSON() ([]byte, error) {
	entries := a.Entries()
	if entries == nil {
		entries = []string{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ParseJSON decodes a JSON array of hex digests. Blank entries are skipped;
// every other entry must be exactly 64 hex characters. The first offending
// entry is named in the error and the whole import is rejected.
func ParseJSON(data []byte) (*Allowlist, error) {
	var raw []string
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&raw); err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "license", "import", "decode hash list", err)
	}
	a := &Allowlist{index: make(map[string]struct{}, len(raw))}
	for i, entry := range raw {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		normalized, err := NormalizeHash(entry)
		if err != nil {
			return nil, failure.Wrap(failure.ErrConfiguration, "license", "import", fmt.Sprintf("entry %d %q", i, entry), err)
		}
		a.add(normalized)
	}
	return a, nil
}

// ReadFile loads an allowlist export.
func ReadFile(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "license", "import", path, err)
	}
	return ParseJSON(data)
}

// WriteFile stores the allowlist as indented JSON, replacing path atomically.
func (a *Allowlist) WriteFile(path string) error {
	data, err := a.EncodeJSON()
	if err != nil {
		return failure.Wrap(failure.ErrIO, "license", "export", "encode", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure.Wrap(failure.ErrIO, "license", "export", "create directory", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return failure.Wrap(failure.ErrIO, "license", "export", path, err)
	}
	return nil
}

// ExportPath returns <hashesDir>/<subject>/hashes.json with the subject made
// safe for use as a directory name.
func ExportPath(hashesDir, subject string) string {
	name := textutil.SafeFileName(subject)
	if name == "" {
		name = "unassigned"
	}
	return filepath.Join(hashesDir, name, ExportFileName)
}

// NormalizeHash lowercases hash and checks it is a 64-character hex digest.
func NormalizeHash(hash string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(hash))
	if len(normalized) != HashLength {
		return "", fmt.Errorf("expected %d hex characters, got %d", HashLength, len(normalized))
	}
	for _, r := range normalized {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("invalid hex character %q", r)
		}
	}
	return normalized, nil
}
