// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/exitcode"
)

// HomeDir is the remote directory executables are copied to.
const HomeDir = "~/"

func hardening() []cmdline.Argument {
	return []cmdline.Argument{
		cmdline.UniqueOpt("-F", cmdline.Single("/dev/null")),
		cmdline.RepeatableOpt("-o", cmdline.Single("UserKnownHostsFile=/dev/null")),
		cmdline.RepeatableOpt("-o", cmdline.Single("BatchMode=yes")),
		cmdline.RepeatableOpt("-o", cmdline.Single("IdentitiesOnly=yes")),
		cmdline.RepeatableOpt("-o", cmdline.Single("StrictHostKeyChecking=no")),
	}
}

//nolint:gochecknoglobals
var (
	// SSHTemplate is the base for all ssh invocations.
	SSHTemplate = cmdline.New("ssh", hardening()...).With(
		cmdline.RepeatableOpt("-o", cmdline.Single("ConnectTimeout=3s")),
	)

	// SCPTemplate is the base for all scp invocations.
	SCPTemplate = cmdline.New("scp", hardening()...)
)

// Target is a remote host reachable via ssh.
type Target struct {
	User    string
	Host    string
	Port    uint16
	KeyPath string
}

// Login returns the "user@host" notation of the [Target].
func (t Target) Login() string {
	return t.User + "@" + t.Host
}

// String implements [fmt.Stringer].
func (t Target) String() string {
	return t.User + "@" + net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// Client builds ssh and scp invocations for a [Target].
type Client struct {
	Target Target

	// SSH is the ssh command the invocations are based on.
	SSH cmdline.Command

	// SCP is the scp command the invocations are based on.
	SCP cmdline.Command
}

// NewClient returns a new [Client] for the given [Target] based on
// [SSHTemplate] and [SCPTemplate].
func NewClient(target Target) *Client {
	return &Client{
		Target: target,
		SSH:    SSHTemplate,
		SCP:    SCPTemplate,
	}
}

// Command returns an ssh invocation that runs the given command on the
// [Target]. The binary and the arguments of the command are appended as is,
// so the remote shell resolves them.
func (c *Client) Command(remote cmdline.Command) (cmdline.Command, error) {
	words, err := remote.Build()
	if err != nil {
		return cmdline.Command{}, fmt.Errorf("remote command: %w", err)
	}

	args := make([]cmdline.Argument, 0, len(words)+4)
	args = append(args,
		cmdline.UniqueOpt("-p", cmdline.Single(strconv.Itoa(int(c.Target.Port)))),
		cmdline.UniqueOpt("-i", cmdline.Single(c.Target.KeyPath)),
		cmdline.Flag(c.Target.Login()),
		cmdline.Flag(remote.Binary),
	)

	for _, word := range words {
		args = append(args, cmdline.Flag(word))
	}

	return c.SSH.With(args...), nil
}

// CopyCommand returns an scp invocation that copies the file at the given
// local path into the home directory of the [Target].
func (c *Client) CopyCommand(path string) cmdline.Command {
	return c.SCP.With(
		cmdline.UniqueOpt("-P", cmdline.Single(strconv.Itoa(int(c.Target.Port)))),
		cmdline.UniqueOpt("-i", cmdline.Single(c.Target.KeyPath)),
		cmdline.Flag(path),
		cmdline.Flag(c.Target.Login()+":"+HomeDir),
	)
}

// Copy copies the file at the given local path into the home directory of the
// [Target].
//
// If scp can not be started, an [exitcode.Error] with [exitcode.OSErr] is
// returned. If scp fails, an [exitcode.Error] with [exitcode.Software] is
// returned that carries the error output of scp verbatim.
func (c *Client) Copy(ctx context.Context, path string) error {
	cmd, err := c.CopyCommand(path).CmdContext(ctx)
	if err != nil {
		return exitcode.New(exitcode.Software, "scp command: %w", err)
	}

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	err = cmd.Run()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitcode.New(exitcode.Software, "%s", stderr.String())
	}

	return exitcode.New(exitcode.OSErr, "spawn %s: %w", cmd.Path, err)
}

// RemotePath returns the path of the executable at the given local path once
// it is copied into the home directory of the [Target].
func RemotePath(path string) (string, error) {
	base := filepath.Base(filepath.Clean(path))

	if path == "" || base == "/" || base == "." || base == ".." {
		return "", exitcode.New(exitcode.DataErr, "bad executable: %q", path)
	}

	return HomeDir + base, nil
}
