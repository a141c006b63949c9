package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedContainer = errors.New("malformed container")
	ErrAuthentication     = errors.New("authentication failure")
	ErrLicenseDenied      = errors.New("license denied")
	ErrArchiveCorrupt     = errors.New("archive corrupt")
	ErrNoPlayableMedia    = errors.New("no playable media")
	ErrIO                 = errors.New("io failure")
	ErrConfiguration      = errors.New("configuration error")
	ErrLaunch             = errors.New("launch failure")
)

var markers = []error{
	ErrMalformedContainer,
	ErrAuthentication,
	ErrLicenseDenied,
	ErrArchiveCorrupt,
	ErrNoPlayableMedia,
	ErrIO,
	ErrConfiguration,
	ErrLaunch,
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the first taxonomy marker carried by err, or nil when err is nil
// or carries none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "unspecified failure"
	}
	return strings.Join(parts, ": ")
}
