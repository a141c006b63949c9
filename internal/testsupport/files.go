package testsupport

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes size bytes of a repeating non-text pattern to path,
// creating parent directories. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if _, err := io.CopyN(f, &patternReader{}, size); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// patternReader yields byte(n % 251) for the n-th byte read.
type patternReader struct{ n int }

func (r *patternReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.n % 251)
		r.n++
	}
	return len(p), nil
}

// TemplateContent is the body WriteTemplate gives every launcher stub.
const TemplateContent = "#!/bin/sh\n# mediapack launcher stub\nexit 0\n"

// WriteTemplate writes an executable launcher stub into dir and returns its
// path.
func WriteTemplate(t testing.TB, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for template: %v", err)
	}
	path := filepath.Join(dir, "mediapack-stub")
	if err := os.WriteFile(path, []byte(TemplateContent), 0o755); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}
