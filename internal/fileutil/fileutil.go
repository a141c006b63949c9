package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile collects writes in a temporary sibling of the destination and
// moves it into place on Commit. Close without Commit discards it, so the
// destination is either untouched or complete.
type AtomicFile struct {
	name string
	mode os.FileMode
	tmp  *os.File
}

// NewAtomicFile creates the temporary sibling for name. mode is applied on
// Commit.
func NewAtomicFile(name string, mode os.FileMode) (*AtomicFile, error) {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp*")
	if err != nil {
		return nil, err
	}
	return &AtomicFile{name: name, mode: mode, tmp: tmp}, nil
}

func (f *AtomicFile) Write(p []byte) (int, error) {
	if f.tmp == nil {
		return 0, os.ErrClosed
	}
	return f.tmp.Write(p)
}

// ReadFrom lets io.Copy use the temp file's copy_file_range path.
func (f *AtomicFile) ReadFrom(r io.Reader) (int64, error) {
	if f.tmp == nil {
		return 0, os.ErrClosed
	}
	return f.tmp.ReadFrom(r)
}

// TempName returns the path being written.
func (f *AtomicFile) TempName() string {
	if f.tmp == nil {
		return ""
	}
	return f.tmp.Name()
}

// Close discards uncommitted data. It is safe to call after Commit.
func (f *AtomicFile) Close() error {
	if f.tmp == nil {
		return nil
	}
	name := f.tmp.Name()
	_ = f.tmp.Close()
	f.tmp = nil
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Commit syncs the data and renames it over the destination.
func (f *AtomicFile) Commit() error {
	if f.tmp == nil {
		return os.ErrClosed
	}
	tmp := f.tmp
	fail := func(err error) error {
		_ = f.Close()
		return err
	}
	if err := tmp.Chmod(f.mode); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := replaceFile(tmp.Name(), f.name); err != nil {
		_ = os.Remove(tmp.Name())
		f.tmp = nil
		return err
	}
	f.tmp = nil
	return nil
}

// WriteFileAtomic writes data to name through an AtomicFile.
func WriteFileAtomic(name string, data []byte, mode os.FileMode) error {
	f, err := NewAtomicFile(name, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Commit()
}
