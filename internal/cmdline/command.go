// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Command is a binary with an ordered list of [Argument]s.
type Command struct {
	Binary string
	args   []Argument
}

// New returns a new [Command] for the given binary and arguments.
func New(binary string, args ...Argument) Command {
	return Command{
		Binary: binary,
		args:   slices.Clone(args),
	}
}

// Args returns a copy of the [Argument]s of the [Command].
func (c Command) Args() []Argument {
	return slices.Clone(c.args)
}

// With returns a copy of the [Command] with the given [Argument]s appended.
// The receiver is not modified.
func (c Command) With(args ...Argument) Command {
	newArgs := make([]Argument, 0, len(c.args)+len(args))
	newArgs = append(newArgs, c.args...)
	newArgs = append(newArgs, args...)

	return Command{
		Binary: c.Binary,
		args:   newArgs,
	}
}

// WithBinary returns a copy of the [Command] with the binary replaced.
func (c Command) WithBinary(binary string) Command {
	return Command{
		Binary: binary,
		args:   slices.Clone(c.args),
	}
}

// Build compiles the [Argument]s into a slice of strings which can be used
// with [exec.Command].
//
// It returns an error if any name uniqueness constraint of any [Argument] is
// violated.
func (c Command) Build() ([]string, error) {
	words := make([]string, 0, 2*len(c.args))

	for idx, arg := range c.args {
		if i := slices.IndexFunc(c.args[:idx], arg.collides); i != -1 {
			return nil, fmt.Errorf(
				"%w: %s, %s",
				ErrArgumentCollision,
				arg.String(),
				c.args[i].String(),
			)
		}

		words = append(words, arg.Words()...)
	}

	return words, nil
}

// Argv returns the binary followed by all argument words.
func (c Command) Argv() ([]string, error) {
	if c.Binary == "" {
		return nil, ErrEmptyBinary
	}

	words, err := c.Build()
	if err != nil {
		return nil, err
	}

	return append([]string{c.Binary}, words...), nil
}

// String implements [fmt.Stringer].
func (c Command) String() string {
	parts := make([]string, 0, len(c.args)+1)
	parts = append(parts, c.Binary)

	for _, arg := range c.args {
		parts = append(parts, arg.String())
	}

	return strings.Join(parts, " ")
}

// Cmd returns an [exec.Cmd] for the [Command]. The process receives SIGKILL
// once the thread that started it terminates, so guests and their remote
// sessions do not outlive the harness.
func (c Command) Cmd() (*exec.Cmd, error) {
	argv, err := c.Argv()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:noctx
	setPdeathsig(cmd)

	return cmd, nil
}

// CmdContext is like [Command.Cmd] but the process is killed once the context
// is done, like with [exec.CommandContext].
func (c Command) CmdContext(ctx context.Context) (*exec.Cmd, error) {
	argv, err := c.Argv()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	setPdeathsig(cmd)

	return cmd, nil
}

func setPdeathsig(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Pdeathsig: unix.SIGKILL,
	}
}
