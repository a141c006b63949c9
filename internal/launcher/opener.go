package launcher

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/cli/browser"
)

// Process is a started player the launcher may wait on.
type Process interface {
	Wait() error
}

// Opener hands extracted media to something that plays it. A nil Process
// means the handoff is fire-and-forget.
type Opener interface {
	Open(ctx context.Context, paths []string) (Process, error)
}

// SystemOpener uses the desktop's default file association.
type SystemOpener struct{}

func (SystemOpener) Open(_ context.Context, paths []string) (Process, error) {
	for _, path := range paths {
		if err := browser.OpenFile(path); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// CommandOpener starts Argv with the media paths appended. The player is not
// tied to the launcher's context and outlives it unless waited on.
type CommandOpener struct {
	Argv []string
}

func (o CommandOpener) Open(_ context.Context, paths []string) (Process, error) {
	if len(o.Argv) == 0 || strings.TrimSpace(o.Argv[0]) == "" {
		return nil, errors.New("player command not configured")
	}
	args := append(append([]string(nil), o.Argv[1:]...), paths...)
	cmd := exec.Command(o.Argv[0], args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
