package scratch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediapack/internal/failure"
	"mediapack/internal/logging"
)

const (
	// Prefix starts every scratch directory name.
	Prefix = "vpkg_"
	// LockFileName is held locked while a launcher uses the directory.
	LockFileName = ".vpkg.lock"
	// Grace protects directories that were just created and may not hold their
	// lock yet.
	Grace = 30 * time.Second
)

// Dir is a scratch directory owned by this process.
type Dir struct {
	Path string
	lock *flock.Flock
}

// Create makes a fresh scratch directory under root and locks it.
func Create(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "scratch", "create", "scratch root", err)
	}
	path := filepath.Join(root, Prefix+strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "scratch", "create", path, err)
	}
	lock := flock.New(filepath.Join(path, LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		_ = os.RemoveAll(path)
		if err == nil {
			err = errors.New("lock held by another process")
		}
		return nil, failure.Wrap(failure.ErrIO, "scratch", "lock", path, err)
	}
	return &Dir{Path: path, lock: lock}, nil
}

// Release drops the in-use lock and leaves the directory for a later sweep.
func (d *Dir) Release() error {
	if d == nil || d.lock == nil {
		return nil
	}
	err := d.lock.Unlock()
	d.lock = nil
	return err
}

// Remove releases the lock and deletes the directory. Failures are returned
// for logging only; the next sweep retries.
func (d *Dir) Remove() error {
	if d == nil {
		return nil
	}
	releaseErr := d.Release()
	if err := os.RemoveAll(d.Path); err != nil {
		return err
	}
	return releaseErr
}

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Sweep deletes every scratch directory under root that no running launcher
// holds. It never fails; problems are reported in the result and logged.
func Sweep(ctx context.Context, root string, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	logger = logging.NewComponentLogger(logger, "scratch")

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-Grace)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		removed, err := sweepOne(dirPath, cutoff)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale scratch directory", "scratch_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "a player may still hold files open; retried on next launch"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		case removed:
			result.Removed = append(result.Removed, dirPath)
			logger.Debug("removed stale scratch directory",
				logging.String("path", dirPath),
				logging.String(logging.FieldEventType, "scratch_cleanup"),
			)
		default:
			result.Skipped = append(result.Skipped, dirPath)
		}
	}
	return result
}

func sweepOne(dirPath string, cutoff time.Time) (bool, error) {
	lockPath := filepath.Join(dirPath, LockFileName)
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		info, err := os.Stat(dirPath)
		if err != nil {
			return false, err
		}
		if info.ModTime().After(cutoff) {
			return false, nil
		}
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	// Windows refuses to delete a file with an open handle.
	_ = lock.Unlock()
	if err := os.RemoveAll(dirPath); err != nil {
		return false, err
	}
	return true, nil
}
