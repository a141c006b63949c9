package container

import (
	"errors"
	"io"

	"mediapack/internal/failure"
)

const (
	// PayloadMagic follows the payload length and anchors the trailer.
	PayloadMagic = "VIDPKG1\x00"
	// MetaMagic opens the optional license block.
	MetaMagic = "HASHPKG1"
	// MagicSize is the width of either magic.
	MagicSize = 8
	// LengthSize is the width of the little-endian length fields.
	LengthSize = 8
	// DefaultBlockSize is the backward scan step.
	DefaultBlockSize = 1 << 20
)

// ErrNotFound reports a file that carries no payload magic.
var ErrNotFound = failure.Wrap(failure.ErrMalformedContainer, "container", "locate", "payload magic not found", nil)

// Trailer records where the pieces of a container live. Offsets are absolute
// within the file it was parsed from.
type Trailer struct {
	Size          int64
	MagicOffset   int64
	PayloadOffset int64
	PayloadLength int64

	// HasLicense is set when a well-formed license block follows the magic.
	HasLicense bool
	// Hashes is the embedded allowlist in stored order.
	Hashes []string
}

// Payload returns a reader over the payload bytes without loading them.
func (t *Trailer) Payload(r io.ReaderAt) *io.SectionReader {
	return io.NewSectionReader(r, t.PayloadOffset, t.PayloadLength)
}

// ReadPayload loads the payload into memory.
func (t *Trailer) ReadPayload(r io.ReaderAt) ([]byte, error) {
	buf := make([]byte, t.PayloadLength)
	if _, err := io.ReadFull(t.Payload(r), buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, failure.Wrap(failure.ErrMalformedContainer, "container", "read payload", "payload truncated", err)
		}
		return nil, failure.Wrap(failure.ErrIO, "container", "read payload", "", err)
	}
	return buf, nil
}

func malformed(op, message string) error {
	return failure.Wrap(failure.ErrMalformedContainer, "container", op, message, nil)
}
