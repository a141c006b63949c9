//go:build windows

package fileutil

import "os"

// CheckWritable reports whether the current user may create files in dir.
func CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
