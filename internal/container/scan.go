package container

import (
	"bytes"
	"io"

	"mediapack/internal/failure"
)

// Scanner searches a file backwards for the payload magic. Peak memory is one
// window of BlockSize+len(PayloadMagic)-1 bytes whatever the file size.
type Scanner struct {
	BlockSize int
}

// FindLastTrailerStart returns the offset of the rightmost payload magic in
// r using DefaultBlockSize windows.
func FindLastTrailerStart(r io.ReaderAt, size int64) (int64, error) {
	return Scanner{BlockSize: DefaultBlockSize}.FindLast(r, size, []byte(PayloadMagic))
}

// FindLast returns the offset of the rightmost occurrence of pattern in the
// first size bytes of r, or ErrNotFound.
//
// Windows are taken right to left. Each one extends len(pattern)-1 bytes into
// the window scanned before it, so an occurrence straddling a block boundary
// is still seen whole.
func (s Scanner) FindLast(r io.ReaderAt, size int64, pattern []byte) (int64, error) {
	plen := int64(len(pattern))
	if plen == 0 || size < plen {
		return -1, ErrNotFound
	}
	block := int64(s.BlockSize)
	if block <= 0 {
		block = DefaultBlockSize
	}

	buf := make([]byte, block+plen-1)
	cursor := size
	for cursor > 0 {
		n := min(block, cursor)
		cursor -= n
		window := min(n+plen-1, size-cursor)
		chunk := buf[:window]
		if got, err := r.ReadAt(chunk, cursor); got < len(chunk) {
			return -1, failure.Wrap(failure.ErrIO, "container", "locate", "read window", err)
		}
		if i := bytes.LastIndex(chunk, pattern); i >= 0 {
			return cursor + int64(i), nil
		}
	}
	return -1, ErrNotFound
}
