//go:build windows

package fileutil

import (
	"errors"
	"os"
)

// rename can't overwrite on windows
func replaceFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}
