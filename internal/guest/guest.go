// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/aibor/guestrun/internal/cmdline"
	"github.com/aibor/guestrun/internal/config"
	"github.com/aibor/guestrun/internal/exitcode"
)

// Guest is a virtual machine running a kernel under test.
type Guest interface {
	// Boot starts the guest and waits until it is reachable. A running guest
	// is killed and replaced.
	Boot(ctx context.Context) error

	// IsAlive probes if the guest is reachable.
	IsAlive(ctx context.Context) (bool, error)

	// RunCmd copies the binary of the command into the guest and starts it
	// there. The caller owns the returned [Process]. It panics if the guest
	// has not been booted.
	RunCmd(ctx context.Context, cmd cmdline.Command) (*Process, error)

	// TryCollectCrash checks if the guest stopped. If so, it returns its
	// console log and the guest must be booted again before further use. It
	// panics if the guest has not been booted.
	TryCollectCrash(ctx context.Context) (string, bool, error)

	// Close kills the guest and releases all its resources. Every guest must
	// be closed once it is no longer used.
	Close() error
}

// Kind identifies a backend by "os/arch/platform".
type Kind string

// Known kinds.
const (
	KindLinuxAMD64Qemu Kind = "linux/amd64/qemu"
)

type constructor func(cfg *config.Config, opts Options) (Guest, error)

//nolint:gochecknoglobals
var backends = map[Kind]constructor{
	KindLinuxAMD64Qemu: func(cfg *config.Config, opts Options) (Guest, error) {
		return NewLinuxQemu(cfg, opts)
	},
}

// Kinds returns all supported [Kind]s.
func Kinds() []Kind {
	return slices.Sorted(maps.Keys(backends))
}

// New creates a new [Guest] with the backend matching the guest segment of
// the given configuration.
func New(cfg *config.Config, opts Options) (Guest, error) {
	kind := Kind(cfg.Guest.Kind())

	newGuest, exists := backends[kind]
	if !exists {
		return nil, exitcode.New(exitcode.Config, "%w: %s", ErrUnsupportedKind, kind)
	}

	g, err := newGuest(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	return g, nil
}
