package scratch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"mediapack/internal/logging"
)

func TestCreateNamesAndLocksDirectory(t *testing.T) {
	root := t.TempDir()
	dir, err := Create(root)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer dir.Remove()

	name := filepath.Base(dir.Path)
	if !strings.HasPrefix(name, Prefix) || len(name) != len(Prefix)+32 {
		t.Fatalf("unexpected directory name %q", name)
	}
	other := flock.New(filepath.Join(dir.Path, LockFileName))
	ok, err := other.TryLock()
	if err != nil {
		t.Fatalf("TryLock returned error: %v", err)
	}
	if ok {
		_ = other.Unlock()
		t.Fatal("expected scratch lock to be held")
	}

	second, err := Create(root)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	defer second.Remove()
	if second.Path == dir.Path {
		t.Fatal("expected unique scratch directories")
	}
}

func TestSweepSkipsLockedAndRemovesReleased(t *testing.T) {
	root := t.TempDir()
	active, err := Create(root)
	if err != nil {
		t.Fatal(err)
	}
	defer active.Remove()

	released, err := Create(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(released.Path, "movie.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := released.Release(); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	unrelated := filepath.Join(root, "keep-me")
	if err := os.Mkdir(unrelated, 0o755); err != nil {
		t.Fatal(err)
	}

	result := Sweep(context.Background(), root, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != released.Path {
		t.Fatalf("expected %s removed, got %+v", released.Path, result)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != active.Path {
		t.Fatalf("expected %s skipped, got %+v", active.Path, result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated directory touched: %v", err)
	}
	if _, err := os.Stat(active.Path); err != nil {
		t.Fatalf("active directory removed: %v", err)
	}
}

func TestSweepHonoursGraceForUnlockedDirectories(t *testing.T) {
	root := t.TempDir()
	fresh := filepath.Join(root, Prefix+"fresh")
	stale := filepath.Join(root, Prefix+"stale")
	for _, dir := range []string{fresh, stale} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * Grace)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	result := Sweep(context.Background(), root, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("expected only stale directory removed, got %+v", result)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh directory removed: %v", err)
	}
}

func TestSweepInvalidRoots(t *testing.T) {
	for _, root := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Sweep(context.Background(), root, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for root %q", root)
		}
	}
}

func TestRemoveDeletesDirectory(t *testing.T) {
	dir, err := Create(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := dir.Remove(); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(dir.Path); !os.IsNotExist(err) {
		t.Fatalf("expected directory removed, stat err = %v", err)
	}
	if err := dir.Remove(); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}
}
