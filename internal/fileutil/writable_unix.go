//go:build !windows

package fileutil

import "golang.org/x/sys/unix"

// CheckWritable reports whether the current user may create files in dir.
func CheckWritable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
