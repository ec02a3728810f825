// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/aibor/guestrun/internal/pipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (*pipe.Reader, *os.File) {
	t.Helper()

	reader, writer, err := pipe.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = reader.Close()
		_ = writer.Close()
	})

	return reader, writer
}

func TestNew(t *testing.T) {
	_, writer := newPipe(t)

	size, err := unix.FcntlInt(writer.Fd(), unix.F_GETPIPE_SZ, 0)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, size, pipe.Capacity)
}

func TestReader_Drain(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		reader, _ := newPipe(t)

		start := time.Now()
		data, err := reader.Drain()
		require.NoError(t, err)

		assert.Empty(t, data)
		assert.Less(t, time.Since(start), time.Second, "should not block")
	})

	t.Run("buffered data", func(t *testing.T) {
		reader, writer := newPipe(t)

		_, err := writer.WriteString("boot noise\n")
		require.NoError(t, err)

		data, err := reader.Drain()
		require.NoError(t, err)
		assert.Equal(t, "boot noise\n", string(data))

		data, err = reader.Drain()
		require.NoError(t, err)
		assert.Empty(t, data, "second drain")
	})

	t.Run("more than one chunk", func(t *testing.T) {
		reader, writer := newPipe(t)

		input := bytes.Repeat([]byte("0123456789abcdef"), 16*1024)

		_, err := writer.Write(input)
		require.NoError(t, err)

		data, err := reader.Drain()
		require.NoError(t, err)
		assert.Equal(t, input, data)
	})

	t.Run("writer closed", func(t *testing.T) {
		reader, writer := newPipe(t)

		_, err := writer.WriteString("last words")
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		data, err := reader.Drain()
		require.NoError(t, err)
		assert.Equal(t, "last words", string(data))

		data, err = reader.Drain()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("closed reader", func(t *testing.T) {
		reader, _ := newPipe(t)
		require.NoError(t, reader.Close())

		_, err := reader.Drain()
		require.ErrorIs(t, err, pipe.ErrClosed)
		require.ErrorIs(t, err, &pipe.Error{})
	})
}

func TestReader_ReadAll(t *testing.T) {
	t.Run("until writer closes", func(t *testing.T) {
		reader, writer := newPipe(t)

		go func() {
			_, _ = writer.WriteString("Kernel panic - not syncing: ")
			time.Sleep(50 * time.Millisecond)
			_, _ = writer.WriteString("Fatal exception\n")
			_ = writer.Close()
		}()

		data, err := reader.ReadAll(t.Context())
		require.NoError(t, err)

		assert.Equal(t,
			"Kernel panic - not syncing: Fatal exception\n",
			string(data),
		)
	})

	t.Run("context done", func(t *testing.T) {
		reader, writer := newPipe(t)

		_, err := writer.WriteString("partial")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()

		data, err := reader.ReadAll(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		assert.Equal(t, "partial", string(data))
	})

	t.Run("closed reader", func(t *testing.T) {
		reader, _ := newPipe(t)
		require.NoError(t, reader.Close())
		require.NoError(t, reader.Close(), "second close")

		_, err := reader.ReadAll(t.Context())
		require.ErrorIs(t, err, pipe.ErrClosed)
	})
}

func TestReleaseWriter(t *testing.T) {
	reader, writer := newPipe(t)

	// Simulates the copy a child process holds after being started.
	childFD, err := unix.Dup(int(writer.Fd()))
	require.NoError(t, err)

	t.Cleanup(func() { _ = unix.Close(childFD) })

	require.NoError(t, pipe.ReleaseWriter(writer))

	flags, err := unix.FcntlInt(uintptr(childFD), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.O_NONBLOCK, "child copy should be non-blocking")

	_, err = unix.Write(childFD, []byte("from child"))
	require.NoError(t, err)

	data, err := reader.Drain()
	require.NoError(t, err)
	assert.Equal(t, "from child", string(data))
}
