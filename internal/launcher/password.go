package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// PasswordSource supplies the password for a sealed payload. ok is false when
// the source has nothing to offer.
type PasswordSource interface {
	Password(ctx context.Context) (password string, ok bool, err error)
}

// Static always offers the same password; an empty value offers nothing.
type Static string

func (s Static) Password(context.Context) (string, bool, error) {
	return string(s), s != "", nil
}

// Env reads the password from an environment variable.
type Env string

func (e Env) Password(context.Context) (string, bool, error) {
	name := strings.TrimSpace(string(e))
	if name == "" {
		return "", false, nil
	}
	value, ok := os.LookupEnv(name)
	return value, ok && value != "", nil
}

// Terminal prompts on an interactive terminal. It offers nothing when In is
// not a terminal, so unattended launches never hang.
type Terminal struct {
	In     *os.File
	Out    io.Writer
	Prompt string
}

// NewTerminal prompts on stdin/stderr.
func NewTerminal() Terminal {
	return Terminal{In: os.Stdin, Out: os.Stderr, Prompt: "Password: "}
}

func (t Terminal) Password(ctx context.Context) (string, bool, error) {
	if t.In == nil {
		return "", false, nil
	}
	fd := t.In.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", false, nil
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if t.Out != nil && t.Prompt != "" {
		fmt.Fprint(t.Out, t.Prompt)
	}
	secret, err := term.ReadPassword(int(fd))
	if t.Out != nil {
		fmt.Fprintln(t.Out)
	}
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	return string(secret), len(secret) > 0, nil
}

// Chain asks each source in turn and returns the first offer.
type Chain []PasswordSource

func (c Chain) Password(ctx context.Context) (string, bool, error) {
	for _, source := range c {
		if source == nil {
			continue
		}
		password, ok, err := source.Password(ctx)
		if err != nil {
			return "", false, err
		}
		if ok {
			return password, true, nil
		}
	}
	return "", false, nil
}
