// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

const maxLineLength = 1024 * 1024

// syncWriter serializes writes of multiple guests to the same destination.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

// Write implements [io.Writer].
func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.w.Write(p) //nolint:wrapcheck
}

// copyLines copies the lines read from src to dst, each prefixed with the
// given prefix. Each line is written in one call, so lines of different
// sources do not interleave.
func copyLines(dst io.Writer, prefix string, src io.Reader) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	for scanner.Scan() {
		_, err := fmt.Fprintf(dst, "%s%s\n", prefix, scanner.Bytes())
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return nil
}
