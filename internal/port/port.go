// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package port leases free TCP ports on the host.
package port

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrExhausted is returned if no unleased port could be found.
var ErrExhausted = errors.New("no free port")

const maxAttempts = 32

//nolint:gochecknoglobals
var (
	mu     sync.Mutex
	leased = map[uint16]struct{}{}
)

// Lease returns a port that is free on the loopback interface and has not
// been leased by this process before and not been released since.
//
// The port is only free at the time of the call. It is released by the
// listener used for discovery, so another process might grab it until it is
// used.
func Lease() (uint16, error) {
	mu.Lock()
	defer mu.Unlock()

	for range maxAttempts {
		port, err := probe()
		if err != nil {
			return 0, err
		}

		if _, exists := leased[port]; exists {
			continue
		}

		leased[port] = struct{}{}

		return port, nil
	}

	return 0, ErrExhausted
}

// Release marks the port as no longer used, so it can be leased again.
func Release(port uint16) {
	mu.Lock()
	defer mu.Unlock()

	delete(leased, port)
}

func probe() (uint16, error) {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type %T", listener.Addr())
	}

	return uint16(addr.Port), nil //nolint:gosec
}
