// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a command running in a guest.
//
// Stdout and Stderr must be read completely before calling [Process.Wait].
type Process struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	cmd *exec.Cmd
}

// Cmd returns the underlying ssh command.
func (p *Process) Cmd() *exec.Cmd {
	return p.cmd
}

// Pid returns the process ID of the local ssh process.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait waits for the process to exit. It returns an [*exec.ExitError] if the
// remote command failed or the connection broke.
func (p *Process) Wait() error {
	return p.cmd.Wait() //nolint:wrapcheck
}

// Kill kills the local ssh process. Killing an exited process is not an
// error.
func (p *Process) Kill() error {
	err := p.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill: %w", err)
	}

	return nil
}
