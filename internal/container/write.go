package container

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"mediapack/internal/failure"
	"mediapack/internal/fileutil"
)

// AppendTrailer streams payload into w followed by its length, the payload
// magic and, when hashes is non-empty, the license block. Offsets in the
// returned Trailer are relative to the first byte written.
func AppendTrailer(w io.Writer, payload io.Reader, hashes []string) (Trailer, error) {
	length, err := io.Copy(w, payload)
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "append", "write payload", err)
	}
	if length == 0 {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "append", "payload is empty", nil)
	}

	var lenBuf [LengthSize]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(length))
	if err := writeAll(w, lenBuf[:], []byte(PayloadMagic)); err != nil {
		return Trailer{}, err
	}
	t := Trailer{
		MagicOffset:   length + LengthSize,
		PayloadLength: length,
	}
	t.Size = t.MagicOffset + MagicSize
	if len(hashes) == 0 {
		return t, nil
	}

	text, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "append", "encode hash list", err)
	}
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(text)))
	if err := writeAll(w, []byte(MetaMagic), lenBuf[:], text); err != nil {
		return Trailer{}, err
	}
	t.HasLicense = true
	t.Hashes = append([]string(nil), hashes...)
	t.Size += MagicSize + LengthSize + int64(len(text))
	return t, nil
}

func writeAll(w io.Writer, parts ...[]byte) error {
	for _, part := range parts {
		if _, err := w.Write(part); err != nil {
			return failure.Wrap(failure.ErrIO, "container", "append", "write trailer", err)
		}
	}
	return nil
}

// Write produces outputPath as a copy of templatePath with the trailer
// appended. The result is assembled in a temporary sibling and renamed into
// place, so on error outputPath is left as it was. The template's permission
// bits carry over to the output.
func Write(templatePath, outputPath string, payload io.Reader, hashes []string) (Trailer, error) {
	template, err := os.Open(templatePath)
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "open template", err)
	}
	defer template.Close()
	info, err := template.Stat()
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "stat template", err)
	}
	if !info.Mode().IsRegular() {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", templatePath+" is not a regular file", nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "create output directory", err)
	}
	out, err := fileutil.NewAtomicFile(outputPath, info.Mode().Perm())
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "create temporary output", err)
	}
	defer out.Close()

	base, err := io.Copy(out, template)
	if err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "copy template", err)
	}
	t, err := AppendTrailer(out, payload, hashes)
	if err != nil {
		return Trailer{}, err
	}
	if err := out.Commit(); err != nil {
		return Trailer{}, failure.Wrap(failure.ErrIO, "container", "write", "commit "+outputPath, err)
	}

	t.Size += base
	t.MagicOffset += base
	t.PayloadOffset += base
	return t, nil
}
