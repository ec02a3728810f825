// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Capacity is the capacity the pipe is set to on creation.
const Capacity = 1024 * 1024

const (
	readChunkSize = 64 * 1024
	pollInterval  = 100 * time.Millisecond
)

// Reader is the non-blocking read end of a pipe created by [New].
//
// It is not safe for concurrent use.
type Reader struct {
	fd     int
	closed bool
	eof    bool
}

// New creates a new pipe with [Capacity] and both ends set non-blocking.
//
// The write end is returned as [os.File], so it can be passed to
// [exec.Cmd.Stdout] and [exec.Cmd.Stderr]. Once the process is started, pass
// it to [ReleaseWriter].
func New() (*Reader, *os.File, error) {
	var fds [2]int

	err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC)
	if err != nil {
		return nil, nil, &Error{Op: "create", Err: err}
	}

	_, err = unix.FcntlInt(uintptr(fds[1]), unix.F_SETPIPE_SZ, Capacity)
	if err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])

		return nil, nil, &Error{Op: "set size", Err: err}
	}

	return &Reader{fd: fds[0]}, os.NewFile(uintptr(fds[1]), "pipe"), nil
}

// ReleaseWriter closes the host's copy of the write end after it has been
// handed to a child process.
//
// Handing an [os.File] to a child process puts it into blocking mode. As the
// mode is shared with the child's copy, it is set back to non-blocking before
// the host's copy is closed.
func ReleaseWriter(writer *os.File) error {
	fd := int(writer.Fd())

	err := unix.SetNonblock(fd, true)
	if err != nil {
		_ = writer.Close()
		return &Error{Op: "set non-blocking", Err: err}
	}

	err = writer.Close()
	if err != nil {
		return &Error{Op: "close writer", Err: err}
	}

	return nil
}

// Drain reads all currently buffered data and returns exactly the bytes read.
// It does not wait for more data. If nothing is buffered, it returns an empty
// result immediately.
func (r *Reader) Drain() ([]byte, error) {
	if r.closed {
		return nil, &Error{Op: "drain", Err: ErrClosed}
	}

	var buf bytes.Buffer

	for !r.eof {
		wouldBlock, err := r.readChunk(&buf)
		if err != nil {
			return buf.Bytes(), &Error{Op: "drain", Err: err}
		}

		if wouldBlock {
			break
		}
	}

	return buf.Bytes(), nil
}

// ReadAll reads until all writers have closed their end of the pipe. While no
// data is buffered, it polls for new data until the context is done.
func (r *Reader) ReadAll(ctx context.Context) ([]byte, error) {
	if r.closed {
		return nil, &Error{Op: "read", Err: ErrClosed}
	}

	var buf bytes.Buffer

	for !r.eof {
		wouldBlock, err := r.readChunk(&buf)
		if err != nil {
			return buf.Bytes(), &Error{Op: "read", Err: err}
		}

		if !wouldBlock {
			continue
		}

		if err := ctx.Err(); err != nil {
			return buf.Bytes(), &Error{Op: "read", Err: err}
		}

		if err := r.poll(); err != nil {
			return buf.Bytes(), &Error{Op: "poll", Err: err}
		}
	}

	return buf.Bytes(), nil
}

// Close closes the read end. Any buffered data is discarded. It is safe to
// call Close multiple times.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	err := unix.Close(r.fd)
	if err != nil {
		return &Error{Op: "close", Err: err}
	}

	return nil
}

// readChunk reads once into buf. It returns true if the read would block.
func (r *Reader) readChunk(buf *bytes.Buffer) (bool, error) {
	chunk := make([]byte, readChunkSize)

	for {
		n, err := unix.Read(r.fd, chunk)

		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return true, nil
		case err != nil:
			return false, err
		case n == 0:
			r.eof = true
		default:
			buf.Write(chunk[:n])
		}

		return false, nil
	}
}

func (r *Reader) poll() error {
	fds := []unix.PollFd{{
		Fd:     int32(r.fd), //nolint:gosec
		Events: unix.POLLIN,
	}}

	_, err := unix.Poll(fds, int(pollInterval.Milliseconds()))
	if err != nil && !errors.Is(err, unix.EINTR) {
		return err
	}

	return nil
}
