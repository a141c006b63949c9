package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"mediapack/internal/failure"
)

const (
	hashA = "201bbf8a9f9d6d2cdc65fb08cb5ca7408df06dc0c3e8d46f41267c8d655ccc55"
	hashB = "feb0448424c01753b58fc98e15d096edc26aee5d6b75e740d24c66003d5e86d9"
)

func TestScannerFindsMagicAroundBlockBoundaries(t *testing.T) {
	const block = 16
	scanner := Scanner{BlockSize: block}
	for _, size := range []int{8, 15, 16, 17, 40, 64, 100} {
		for _, k := range []int{0, block - 1, block, block + 1, 2*block - 1, 2 * block, 2*block + 1, size - MagicSize} {
			if k < 0 || k+MagicSize > size {
				continue
			}
			t.Run(fmt.Sprintf("size=%d/k=%d", size, k), func(t *testing.T) {
				data := make([]byte, size)
				copy(data[k:], PayloadMagic)
				got, err := scanner.FindLast(bytes.NewReader(data), int64(size), []byte(PayloadMagic))
				if err != nil {
					t.Fatalf("FindLast returned error: %v", err)
				}
				if got != int64(k) {
					t.Fatalf("FindLast = %d, want %d", got, k)
				}
			})
		}
	}
}

func TestScannerReturnsRightmostOccurrence(t *testing.T) {
	data := make([]byte, 200)
	copy(data[10:], PayloadMagic)
	copy(data[77:], PayloadMagic)
	copy(data[150:], PayloadMagic)
	got, err := Scanner{BlockSize: 32}.FindLast(bytes.NewReader(data), int64(len(data)), []byte(PayloadMagic))
	if err != nil {
		t.Fatalf("FindLast returned error: %v", err)
	}
	if got != 150 {
		t.Fatalf("FindLast = %d, want 150", got)
	}
}

func TestScannerNotFound(t *testing.T) {
	data := bytes.Repeat([]byte("VIDPKG1"), 50)
	_, err := Scanner{BlockSize: 16}.FindLast(bytes.NewReader(data), int64(len(data)), []byte(PayloadMagic))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, failure.ErrMalformedContainer) {
		t.Fatalf("expected malformed container marker, got %v", err)
	}
	if _, err := FindLastTrailerStart(bytes.NewReader(nil), 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty input, got %v", err)
	}
}

func TestAppendTrailerRoundTrip(t *testing.T) {
	template := []byte("#!launcher\x00\x01\x02")
	payloads := map[string][]byte{
		"plain":           []byte("PK\x03\x04 archive bytes"),
		"contains magic":  append(append([]byte("lead"), PayloadMagic...), "tail"...),
		"ends with magic": append([]byte("x"), PayloadMagic...),
	}
	hashLists := map[string][]string{
		"no license": nil,
		"one hash":   {hashA},
		"two hashes": {hashA, hashB},
	}
	for pname, payload := range payloads {
		for hname, hashes := range hashLists {
			t.Run(pname+"/"+hname, func(t *testing.T) {
				var buf bytes.Buffer
				buf.Write(template)
				written, err := AppendTrailer(&buf, bytes.NewReader(payload), hashes)
				if err != nil {
					t.Fatalf("AppendTrailer returned error: %v", err)
				}
				if written.Size != int64(buf.Len()-len(template)) {
					t.Fatalf("reported size %d, wrote %d", written.Size, buf.Len()-len(template))
				}

				data := buf.Bytes()
				r := bytes.NewReader(data)
				offset, err := FindLastTrailerStart(r, int64(len(data)))
				if err != nil {
					t.Fatalf("FindLastTrailerStart returned error: %v", err)
				}
				if offset != int64(len(template))+written.MagicOffset {
					t.Fatalf("magic at %d, want %d", offset, int64(len(template))+written.MagicOffset)
				}
				parsed, err := ParseTrailer(r, int64(len(data)), offset)
				if err != nil {
					t.Fatalf("ParseTrailer returned error: %v", err)
				}
				got, err := parsed.ReadPayload(r)
				if err != nil {
					t.Fatalf("ReadPayload returned error: %v", err)
				}
				if !bytes.Equal(got, payload) {
					t.Fatalf("payload mismatch: %q", got)
				}
				if parsed.HasLicense != (len(hashes) > 0) {
					t.Fatalf("HasLicense = %v", parsed.HasLicense)
				}
				if len(parsed.Hashes) != len(hashes) {
					t.Fatalf("hashes = %v, want %v", parsed.Hashes, hashes)
				}
				for i := range hashes {
					if parsed.Hashes[i] != hashes[i] {
						t.Fatalf("hashes = %v, want %v", parsed.Hashes, hashes)
					}
				}
			})
		}
	}
}

func TestAppendTrailerRejectsEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if _, err := AppendTrailer(&buf, bytes.NewReader(nil), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestLicenseBlockLayout(t *testing.T) {
	var buf bytes.Buffer
	if _, err := AppendTrailer(&buf, bytes.NewReader([]byte("payload")), []string{hashA}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	magicOffset := int64(len("payload") + LengthSize)
	if got := string(data[magicOffset+MagicSize : magicOffset+2*MagicSize]); got != MetaMagic {
		t.Fatalf("meta magic = %q", got)
	}
	textLength := int64(binary.LittleEndian.Uint64(data[magicOffset+16 : magicOffset+24]))
	if magicOffset+24+textLength != int64(len(data)) {
		t.Fatalf("license block does not end at file end: %d + 24 + %d != %d", magicOffset, textLength, len(data))
	}
}

func buildContainer(t *testing.T, payload []byte, hashes []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("template")
	if _, err := AppendTrailer(&buf, bytes.NewReader(payload), hashes); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseTrailerMalformed(t *testing.T) {
	valid := buildContainer(t, []byte("payload"), []string{hashA})
	magicOffset := int64(bytes.LastIndex(valid, []byte(PayloadMagic)))

	tests := []struct {
		name   string
		data   func() []byte
		offset int64
	}{
		{name: "offset before length field", data: func() []byte { return valid }, offset: 4},
		{name: "offset past end", data: func() []byte { return valid }, offset: int64(len(valid))},
		{name: "no magic at offset", data: func() []byte { return valid }, offset: magicOffset - 1},
		{
			name: "zero payload length",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint64(d[magicOffset-8:], 0)
				return d
			},
			offset: magicOffset,
		},
		{
			name: "negative payload length",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint64(d[magicOffset-8:], ^uint64(0))
				return d
			},
			offset: magicOffset,
		},
		{
			name: "payload longer than file",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint64(d[magicOffset-8:], uint64(magicOffset))
				return d
			},
			offset: magicOffset,
		},
		{
			name:   "trailing bytes after license block",
			data:   func() []byte { return append(bytes.Clone(valid), 'x') },
			offset: magicOffset,
		},
		{
			name: "license length short",
			data: func() []byte {
				d := bytes.Clone(valid)
				n := binary.LittleEndian.Uint64(d[magicOffset+16:])
				binary.LittleEndian.PutUint64(d[magicOffset+16:], n-1)
				return d
			},
			offset: magicOffset,
		},
		{
			name: "license text not json",
			data: func() []byte {
				d := bytes.Clone(valid)
				d[len(d)-1] = '{'
				return d
			},
			offset: magicOffset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data()
			_, err := ParseTrailer(bytes.NewReader(data), int64(len(data)), tt.offset)
			if !errors.Is(err, failure.ErrMalformedContainer) {
				t.Fatalf("expected malformed container error, got %v", err)
			}
		})
	}
}

func TestParseTrailerIgnoresNonLicenseTail(t *testing.T) {
	data := buildContainer(t, []byte("payload"), nil)
	data = append(data, "unrelated trailing bytes"...)
	magicOffset := int64(bytes.LastIndex(data, []byte(PayloadMagic)))
	parsed, err := ParseTrailer(bytes.NewReader(data), int64(len(data)), magicOffset)
	if err != nil {
		t.Fatalf("ParseTrailer returned error: %v", err)
	}
	if parsed.HasLicense {
		t.Fatal("expected no license block")
	}
}

func TestWriteAndOpen(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "stub")
	if err := os.WriteFile(templatePath, []byte("stub-binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "out", "movie.exe")
	payload := []byte("PK\x03\x04 payload with " + PayloadMagic + " inside")

	written, err := Write(templatePath, outputPath, bytes.NewReader(payload), []string{hashB})
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	info, err := os.Stat(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != written.Size {
		t.Fatalf("file size %d, trailer reports %d", info.Size(), written.Size)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("expected executable bit preserved, got %o", info.Mode().Perm())
	}
	stub, err := os.ReadFile(templatePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(stub) != "stub-binary" {
		t.Fatalf("template modified: %q", stub)
	}

	c, err := Open(outputPath)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer c.Close()
	if c.MagicOffset != written.MagicOffset || c.PayloadOffset != written.PayloadOffset {
		t.Fatalf("Open trailer %+v, Write trailer %+v", *c.Trailer, written)
	}
	got, err := io.ReadAll(c.PayloadReader())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
	if !c.HasLicense || len(c.Hashes) != 1 || c.Hashes[0] != hashB {
		t.Fatalf("unexpected license block: %+v", c.Hashes)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestWriteFailureLeavesDestinationUntouched(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "stub")
	if err := os.WriteFile(templatePath, []byte("stub"), 0o755); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(dir, "movie.exe")
	if err := os.WriteFile(outputPath, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Write(templatePath, outputPath, failingReader{}, nil); err == nil {
		t.Fatal("expected error from failing payload")
	}
	got, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "previous" {
		t.Fatalf("destination changed: %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}

	if _, err := Write(filepath.Join(dir, "missing"), outputPath, bytes.NewReader([]byte("x")), nil); !errors.Is(err, failure.ErrIO) {
		t.Fatalf("expected io failure for missing template, got %v", err)
	}
}

func TestOpenWithoutTrailer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("just a binary"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, failure.ErrMalformedContainer) {
		t.Fatalf("expected malformed container error, got %v", err)
	}
}
