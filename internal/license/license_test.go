package license

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediapack/internal/device"
	"mediapack/internal/failure"
)

const (
	testSalt    = "pepper"
	serialOneID = "201bbf8a9f9d6d2cdc65fb08cb5ca7408df06dc0c3e8d46f41267c8d655ccc55"
	serialTwoID = "feb0448424c01753b58fc98e15d096edc26aee5d6b75e740d24c66003d5e86d9"
)

func TestHasherHash(t *testing.T) {
	h := NewHasher(testSalt)
	if got := h.Hash("SERIAL-1"); got != serialOneID {
		t.Fatalf("Hash(SERIAL-1) = %s, want %s", got, serialOneID)
	}
	shipped := NewHasher("ca2961109a64ae06ae3500a6ff1ccab3")
	want := "cc2d136b5ded6487f926e19ec23a804c014e8ebb941387276b30e6f695983458"
	if got := shipped.Hash("4C530001230803110582"); got != want {
		t.Fatalf("Hash with default salt = %s, want %s", got, want)
	}
}

func TestHasherBuildSkipsBlankSerials(t *testing.T) {
	h := NewHasher(testSalt)
	list := h.Build([]device.Identity{
		{HardwareSerial: "SERIAL-1"},
		{HardwareSerial: "  "},
		{HardwareSerial: "SERIAL-2"},
		{HardwareSerial: "SERIAL-1"},
	})
	got := list.Entries()
	if len(got) != 2 || got[0] != serialOneID || got[1] != serialTwoID {
		t.Fatalf("unexpected entries: %v", got)
	}
}

func TestValidate(t *testing.T) {
	h := NewHasher(testSalt)
	list, err := New(serialOneID)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	tests := []struct {
		name     string
		list     *Allowlist
		observed []device.Identity
		want     bool
	}{
		{name: "match", list: list, observed: []device.Identity{{HardwareSerial: "OTHER"}, {HardwareSerial: "SERIAL-1"}}, want: true},
		{name: "no match", list: list, observed: []device.Identity{{HardwareSerial: "SERIAL-2"}}, want: false},
		{name: "no devices", list: list, observed: nil, want: false},
		{name: "empty allowlist", list: &Allowlist{}, observed: []device.Identity{{HardwareSerial: "SERIAL-1"}}, want: false},
		{name: "nil allowlist", list: nil, observed: []device.Identity{{HardwareSerial: "SERIAL-1"}}, want: false},
		{name: "blank serial", list: list, observed: []device.Identity{{HardwareSerial: ""}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.Validate(tt.list, tt.observed); got != tt.want {
				t.Fatalf("Validate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateDependsOnSalt(t *testing.T) {
	list := NewHasher(testSalt).Build([]device.Identity{{HardwareSerial: "SERIAL-1"}})
	if NewHasher("other").Validate(list, []device.Identity{{HardwareSerial: "SERIAL-1"}}) {
		t.Fatal("expected a different salt to reject the device")
	}
}

func TestMatchReturnsIdentity(t *testing.T) {
	h := NewHasher(testSalt)
	list := h.Build([]device.Identity{{HardwareSerial: "SERIAL-2"}})
	id, ok := h.Match(list, []device.Identity{
		{HardwareSerial: "SERIAL-1", VolumeRoot: "/media/a"},
		{HardwareSerial: "SERIAL-2", VolumeRoot: "/media/b"},
	})
	if !ok || id.VolumeRoot != "/media/b" {
		t.Fatalf("Match = %+v, %v", id, ok)
	}
}

func TestAllowlistContainsIgnoresCase(t *testing.T) {
	list, err := New(strings.ToUpper(serialOneID))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if !list.Contains(serialOneID) || !list.Contains(strings.ToUpper(serialOneID)) {
		t.Fatal("expected case-insensitive match")
	}
	if list.Entries()[0] != serialOneID {
		t.Fatalf("expected stored entry lowercased, got %s", list.Entries()[0])
	}
}

func TestParseJSONRejectsBadEntry(t *testing.T) {
	data := []byte(`["` + serialOneID + `", "abc123"]`)
	_, err := ParseJSON(data)
	if err == nil {
		t.Fatal("expected error for short entry")
	}
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "abc123") {
		t.Fatalf("expected error to name the entry, got %v", err)
	}

	nonHex := strings.Repeat("z", HashLength)
	if _, err := ParseJSON([]byte(`["` + nonHex + `"]`)); err == nil {
		t.Fatal("expected error for non-hex entry")
	}
	if _, err := ParseJSON([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected error for non-array document")
	}
}

func TestEncodeJSONEmpty(t *testing.T) {
	data, err := (&Allowlist{}).EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON returned error: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected [], got %s", data)
	}
}

func TestBuilderAddVersusReplace(t *testing.T) {
	b := NewBuilder(NewHasher(testSalt))
	if added := b.Add(device.Identity{HardwareSerial: "SERIAL-1"}); added != 1 {
		t.Fatalf("first Add = %d, want 1", added)
	}
	if added := b.Add(device.Identity{HardwareSerial: "SERIAL-1"}, device.Identity{HardwareSerial: "SERIAL-2"}); added != 1 {
		t.Fatalf("second Add = %d, want 1", added)
	}
	if got := b.Allowlist().Entries(); len(got) != 2 || got[0] != serialOneID {
		t.Fatalf("unexpected entries after Add: %v", got)
	}

	snapshot := b.Allowlist()
	b.Replace(device.Identity{HardwareSerial: "SERIAL-2"})
	if got := b.Allowlist().Entries(); len(got) != 1 || got[0] != serialTwoID {
		t.Fatalf("unexpected entries after Replace: %v", got)
	}
	if snapshot.Len() != 2 {
		t.Fatalf("snapshot mutated: %v", snapshot.Entries())
	}
}

func TestBuilderImport(t *testing.T) {
	b := NewBuilder(NewHasher(testSalt))
	b.Add(device.Identity{HardwareSerial: "SERIAL-1"})
	other, err := New(serialOneID, serialTwoID)
	if err != nil {
		t.Fatal(err)
	}
	if added := b.Import(other); added != 1 {
		t.Fatalf("Import = %d, want 1", added)
	}
}

func TestWriteFileReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := ExportPath(dir, "Alice: Season 1")
	if want := filepath.Join(dir, "Alice_ Season 1", ExportFileName); path != want {
		t.Fatalf("ExportPath = %s, want %s", path, want)
	}

	list, err := New(serialOneID, serialTwoID)
	if err != nil {
		t.Fatal(err)
	}
	if err := list.WriteFile(path); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "\n  \"") {
		t.Fatalf("expected indented JSON, got %s", raw)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if got := loaded.Entries(); len(got) != 2 || got[1] != serialTwoID {
		t.Fatalf("unexpected entries: %v", got)
	}
}

func TestExportPathBlankSubject(t *testing.T) {
	if got := ExportPath("/h", "  "); got != filepath.Join("/h", "unassigned", ExportFileName) {
		t.Fatalf("ExportPath = %s", got)
	}
}

func TestParseJSONSkipsBlankEntries(t *testing.T) {
	list, err := ParseJSON([]byte(`["", "  ", "` + serialTwoID + `"]`))
	if err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}
	if list.Len() != 1 {
		t.Fatalf("expected 1 entry, got %v", list.Entries())
	}
}
