package failure_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"mediapack/internal/failure"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failure.Wrap(failure.ErrIO, "container", "append", "write payload", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, failure.ErrIO) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"container", "append", "write payload", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := failure.Wrap(failure.ErrNoPlayableMedia, "launcher", "select", "", nil)
	if !errors.Is(err, failure.ErrNoPlayableMedia) {
		t.Fatalf("expected marker, got %v", err)
	}
	if got := err.Error(); got != "no playable media: launcher: select" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := failure.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, failure.ErrIO) {
		t.Fatalf("expected io marker by default, got %v", err)
	}
	if !strings.Contains(err.Error(), "unspecified failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "untagged", err: errors.New("plain"), want: nil},
		{name: "direct", err: failure.ErrLicenseDenied, want: failure.ErrLicenseDenied},
		{name: "wrapped", err: failure.Wrap(failure.ErrAuthentication, "envelope", "decrypt", "", nil), want: failure.ErrAuthentication},
		{name: "double wrapped", err: fmt.Errorf("outer: %w", failure.Wrap(failure.ErrArchiveCorrupt, "archive", "extract", "", nil)), want: failure.ErrArchiveCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failure.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind() = %v, want %v", got, tc.want)
			}
		})
	}
}
