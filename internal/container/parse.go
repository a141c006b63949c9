package container

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mediapack/internal/failure"
)

// ParseTrailer decodes the trailer whose payload magic sits at magicOffset.
// Arithmetic that would place any field outside the file is reported as
// failure.ErrMalformedContainer. Bytes after the magic that do not start with
// MetaMagic mean the container carries no license block.
func ParseTrailer(r io.ReaderAt, size, magicOffset int64) (*Trailer, error) {
	if magicOffset < LengthSize || magicOffset+MagicSize > size {
		return nil, malformed("parse", fmt.Sprintf("magic offset %d out of range for size %d", magicOffset, size))
	}
	var magic [MagicSize]byte
	if err := readFull(r, magic[:], magicOffset); err != nil {
		return nil, err
	}
	if string(magic[:]) != PayloadMagic {
		return nil, malformed("parse", fmt.Sprintf("no payload magic at offset %d", magicOffset))
	}

	length, err := readInt64(r, magicOffset-LengthSize)
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, malformed("parse", fmt.Sprintf("payload length %d", length))
	}
	start := magicOffset - LengthSize - length
	if start < 0 {
		return nil, malformed("parse", fmt.Sprintf("payload length %d exceeds available %d bytes", length, magicOffset-LengthSize))
	}

	t := &Trailer{
		Size:          size,
		MagicOffset:   magicOffset,
		PayloadOffset: start,
		PayloadLength: length,
	}
	if err := parseLicenseBlock(r, t); err != nil {
		return nil, err
	}
	return t, nil
}

func parseLicenseBlock(r io.ReaderAt, t *Trailer) error {
	metaOffset := t.MagicOffset + MagicSize
	if t.Size-metaOffset < MagicSize+LengthSize {
		return nil
	}
	var meta [MagicSize]byte
	if err := readFull(r, meta[:], metaOffset); err != nil {
		return err
	}
	if string(meta[:]) != MetaMagic {
		return nil
	}

	textLength, err := readInt64(r, metaOffset+MagicSize)
	if err != nil {
		return err
	}
	textOffset := metaOffset + MagicSize + LengthSize
	if textLength <= 0 || textLength != t.Size-textOffset {
		return malformed("parse license", fmt.Sprintf("hash list length %d does not end at file size %d", textLength, t.Size))
	}
	text := make([]byte, textLength)
	if err := readFull(r, text, textOffset); err != nil {
		return err
	}
	var hashes []string
	if err := json.NewDecoder(bytes.NewReader(text)).Decode(&hashes); err != nil {
		return failure.Wrap(failure.ErrMalformedContainer, "container", "parse license", "decode hash list", err)
	}
	t.HasLicense = true
	t.Hashes = hashes
	return nil
}

func readFull(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == io.EOF || err == nil {
		return malformed("read", fmt.Sprintf("short read at offset %d", off))
	}
	return failure.Wrap(failure.ErrIO, "container", "read", fmt.Sprintf("offset %d", off), err)
}

func readInt64(r io.ReaderAt, off int64) (int64, error) {
	var buf [LengthSize]byte
	if err := readFull(r, buf[:], off); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// Container is an opened package file with its trailer already parsed.
type Container struct {
	*Trailer
	file *os.File
	path string
}

// Open locates and parses the trailer of the file at path. Only trailer
// metadata is read; the payload stays on disk until asked for.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "container", "open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, failure.Wrap(failure.ErrIO, "container", "stat", path, err)
	}
	offset, err := FindLastTrailerStart(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	t, err := ParseTrailer(f, info.Size(), offset)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Container{Trailer: t, file: f, path: path}, nil
}

// Path returns the file the container was opened from.
func (c *Container) Path() string { return c.path }

// PayloadReader streams the payload from disk.
func (c *Container) PayloadReader() *io.SectionReader {
	return c.Payload(c.file)
}

// LoadPayload reads the whole payload into memory.
func (c *Container) LoadPayload() ([]byte, error) {
	return c.ReadPayload(c.file)
}

// Close releases the underlying file.
func (c *Container) Close() error {
	return c.file.Close()
}
