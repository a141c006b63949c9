package launcher

import "mediapack/internal/failure"

// ExitCode is the launcher's process exit status. Values are stable across
// releases and never reused.
type ExitCode int

const (
	ExitOK             ExitCode = 0
	ExitLicenseDenied  ExitCode = 2
	ExitCorruptSelf    ExitCode = 3
	ExitBadPassword    ExitCode = 4
	ExitArchiveCorrupt ExitCode = 5
	ExitNoPlayable     ExitCode = 10
	ExitLaunchFailed   ExitCode = 11
	ExitInternal       ExitCode = 99
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitLicenseDenied:
		return "license denied"
	case ExitCorruptSelf:
		return "corrupt self"
	case ExitBadPassword:
		return "bad password"
	case ExitArchiveCorrupt:
		return "archive corrupt"
	case ExitNoPlayable:
		return "no playable media"
	case ExitLaunchFailed:
		return "launch failed"
	default:
		return "internal error"
	}
}

// ExitCodeFor classifies err by its failure marker.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	switch failure.Kind(err) {
	case failure.ErrLicenseDenied:
		return ExitLicenseDenied
	case failure.ErrMalformedContainer:
		return ExitCorruptSelf
	case failure.ErrAuthentication:
		return ExitBadPassword
	case failure.ErrArchiveCorrupt:
		return ExitArchiveCorrupt
	case failure.ErrNoPlayableMedia:
		return ExitNoPlayable
	case failure.ErrLaunch:
		return ExitLaunchFailed
	}
	return ExitInternal
}

// State names a step of a launch.
type State int

const (
	StateStart State = iota
	StateSweep
	StateLocateTrailer
	StateLicenseCheck
	StateReadPayload
	StateDecryptIfNeeded
	StateExtractArchive
	StateSelectMedia
	StateLaunch
	StateCleanup
	StateTerminal
)

var stateNames = [...]string{
	StateStart:           "start",
	StateSweep:           "sweep",
	StateLocateTrailer:   "locate_trailer",
	StateLicenseCheck:    "license_check",
	StateReadPayload:     "read_payload",
	StateDecryptIfNeeded: "decrypt_if_needed",
	StateExtractArchive:  "extract_archive",
	StateSelectMedia:     "select_media",
	StateLaunch:          "launch",
	StateCleanup:         "cleanup",
	StateTerminal:        "terminal",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
