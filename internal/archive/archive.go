package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"mediapack/internal/failure"
)

// Signature is the local file header magic that starts every unencrypted
// payload.
const Signature = "PK\x03\x04"

// HasSignature reports whether b starts with the zip local header magic.
func HasSignature(b []byte) bool {
	return bytes.HasPrefix(b, []byte(Signature))
}

// Entry describes one archived file.
type Entry struct {
	Name           string
	Size           uint64
	CompressedSize uint64
}

// Build writes one deflated entry per input file to w. Inputs that share a
// base name are stored as "name (2).ext", "name (3).ext" and so on.
func Build(w io.Writer, files []string) ([]Entry, error) {
	if len(files) == 0 {
		return nil, failure.Wrap(failure.ErrIO, "archive", "build", "no input files", nil)
	}
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	used := make(map[string]int, len(files))
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		name := uniqueName(used, filepath.Base(file))
		size, err := addFile(zw, file, name)
		if err != nil {
			_ = zw.Close()
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Size: uint64(size)})
	}
	if err := zw.Close(); err != nil {
		return nil, failure.Wrap(failure.ErrIO, "archive", "build", "finish archive", err)
	}
	return entries, nil
}

func uniqueName(used map[string]int, name string) string {
	key := strings.ToLower(name)
	used[key]++
	n := used[key]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	for {
		if _, taken := used[strings.ToLower(candidate)]; !taken {
			used[strings.ToLower(candidate)] = 1
			return candidate
		}
		n++
		candidate = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	}
}

func addFile(zw *zip.Writer, file, name string) (int64, error) {
	in, err := os.Open(file)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", "open "+file, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", "stat "+file, err)
	}
	if !info.Mode().IsRegular() {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", file+" is not a regular file", nil)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", "header for "+file, err)
	}
	header.Name = name
	header.Method = zip.Deflate
	out, err := zw.CreateHeader(header)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", "create entry "+name, err)
	}
	n, err := io.Copy(out, in)
	if err != nil {
		return 0, failure.Wrap(failure.ErrIO, "archive", "build", "compress "+file, err)
	}
	return n, nil
}

// List returns the entries of the archive in r without extracting them.
func List(r io.ReaderAt, size int64) ([]Entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, failure.Wrap(failure.ErrArchiveCorrupt, "archive", "list", "read directory", err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, Entry{Name: f.Name, Size: f.UncompressedSize64, CompressedSize: f.CompressedSize64})
	}
	return entries, nil
}

// Extract unpacks every entry of the archive in r under dest and returns the
// paths of the regular files written, in archive order. Entries whose names
// are absolute, climb out of dest, or are not plain files or directories fail
// the whole extraction with failure.ErrArchiveCorrupt, as do checksum and
// decompression errors.
func Extract(r io.ReaderAt, size int64, dest string) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", "read directory", err)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return nil, failure.Wrap(failure.ErrIO, "archive", "extract", "open destination", err)
	}
	defer root.Close()

	var written []string
	for _, f := range zr.File {
		name, err := localName(f.Name)
		if err != nil {
			return written, err
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := root.MkdirAll(name, 0o755); err != nil {
				return written, failure.Wrap(failure.ErrIO, "archive", "extract", "create "+name, err)
			}
			continue
		case !mode.IsRegular():
			return written, failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", fmt.Sprintf("entry %q has unsupported type %s", f.Name, mode.Type()), nil)
		}
		if dir := filepath.Dir(name); dir != "." {
			if err := root.MkdirAll(dir, 0o755); err != nil {
				return written, failure.Wrap(failure.ErrIO, "archive", "extract", "create "+dir, err)
			}
		}
		if err := extractFile(root, f, name); err != nil {
			return written, err
		}
		written = append(written, filepath.Join(dest, name))
	}
	return written, nil
}

func localName(name string) (string, error) {
	if strings.Contains(name, "\\") {
		name = strings.ReplaceAll(name, "\\", "/")
	}
	local := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if local == "" || !filepath.IsLocal(local) {
		return "", failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", fmt.Sprintf("entry %q escapes the destination", name), nil)
	}
	return local, nil
}

func extractFile(root *os.Root, f *zip.File, name string) error {
	in, err := f.Open()
	if err != nil {
		return failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", "open entry "+f.Name, err)
	}
	defer in.Close()

	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return failure.Wrap(failure.ErrIO, "archive", "extract", "create "+name, err)
	}
	dst := &trackingWriter{w: out}
	if _, err := io.Copy(dst, in); err != nil {
		_ = out.Close()
		if dst.err != nil {
			return failure.Wrap(failure.ErrIO, "archive", "extract", "write "+name, err)
		}
		return failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", "decompress "+f.Name, err)
	}
	if err := out.Close(); err != nil {
		return failure.Wrap(failure.ErrIO, "archive", "extract", "close "+name, err)
	}
	return nil
}

// trackingWriter remembers write errors so a failed copy can be blamed on the
// destination rather than the archive.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
