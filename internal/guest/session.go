// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/exitcode"
	"github.com/aibor/guestrun/internal/pipe"
	"github.com/aibor/guestrun/internal/port"
)

// slot holds what a guest owns outside of the Go heap: the active session and
// the leased port. It is a separate allocation, so it can be released after
// its guest became unreachable without [LinuxQemu.Close] being called.
type slot struct {
	session *session
	port    uint16
}

// abandon kills the VM, if running, and releases the port.
func (s *slot) abandon() {
	if s.session != nil {
		_ = s.session.discard()
		s.session = nil
	}

	if s.port != 0 {
		port.Release(s.port)
		s.port = 0
	}
}

// session is a running VM process together with the read end of its console
// log. Both are only ever present together.
type session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	log   *pipe.Reader

	// done is closed once the process has been waited for.
	done    chan struct{}
	waitErr error
}

// startSession spawns the VM with stdout and stderr connected to a new pipe.
// Stdin is piped but never written to.
func startSession(vm cmdline.Command) (*session, error) {
	cmd, err := vm.Cmd()
	if err != nil {
		return nil, exitcode.New(exitcode.Software, "vm command: %w", err)
	}

	reader, writer, err := pipe.New()
	if err != nil {
		return nil, exitcode.New(exitcode.OSErr, "%w", err)
	}

	cmd.Stdout = writer
	cmd.Stderr = writer

	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = writer.Close()
		_ = reader.Close()

		return nil, exitcode.New(exitcode.OSErr, "stdin pipe: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		_ = writer.Close()
		_ = reader.Close()

		return nil, exitcode.New(exitcode.OSErr, "spawn %s: %w", vm.Binary, err)
	}

	sess := &session{
		cmd:   cmd,
		stdin: stdin,
		log:   reader,
		done:  make(chan struct{}),
	}

	go sess.reap()

	err = pipe.ReleaseWriter(writer)
	if err != nil {
		_ = sess.discard()
		return nil, exitcode.New(exitcode.OSErr, "%w", err)
	}

	return sess, nil
}

func (s *session) reap() {
	s.waitErr = s.cmd.Wait()
	close(s.done)
}

func (s *session) pid() int {
	return s.cmd.Process.Pid
}

func (s *session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *session) kill() error {
	err := s.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return exitcode.New(exitcode.OSErr, "kill vm: %w", err)
	}

	return nil
}

// readLog waits for the process to exit and reads the console log until all
// writers are gone.
func (s *session) readLog(ctx context.Context) ([]byte, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return s.log.ReadAll(ctx) //nolint:wrapcheck
}

// discard kills the process and closes the console log without reading it.
func (s *session) discard() error {
	err := s.kill()
	if err != nil {
		return err
	}

	<-s.done

	_ = s.stdin.Close()

	err = s.log.Close()
	if err != nil {
		return exitcode.New(exitcode.OSErr, "%w", err)
	}

	return nil
}
