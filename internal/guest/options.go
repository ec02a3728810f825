// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aibor/guestrun/internal/metrics"
)

// Defaults for [Options].
const (
	DefaultBootAttempts     = 5
	DefaultProbeTimeout     = 10 * time.Second
	DefaultCrashWaitTimeout = 2 * time.Second
	DefaultLogReadTimeout   = 10 * time.Second
)

// Options are optional parameters of a [Guest]. Zero values are replaced by
// defaults.
type Options struct {
	// QemuBinary replaces the QEMU binary of the command template.
	QemuBinary string

	// SSHBinary replaces the ssh binary.
	SSHBinary string

	// SCPBinary replaces the scp binary.
	SCPBinary string

	// BootAttempts is the number of liveness probes while booting. Defaults
	// to [DefaultBootAttempts].
	BootAttempts int

	// WaitBootTime is the time to wait before each liveness probe while
	// booting. If set, it takes precedence over the configured time.
	WaitBootTime time.Duration

	// ProbeTimeout is the timeout of a liveness probe. Defaults to
	// [DefaultProbeTimeout].
	ProbeTimeout time.Duration

	// CrashWaitTimeout is the time to wait for the guest to stop when trying
	// to collect a crash. Defaults to [DefaultCrashWaitTimeout].
	CrashWaitTimeout time.Duration

	// LogReadTimeout limits reading the console log of a stopped guest.
	// Defaults to [DefaultLogReadTimeout].
	LogReadTimeout time.Duration

	// Diagnostics receives the console log on boot failure. Defaults to
	// [os.Stderr].
	Diagnostics io.Writer

	// Logger defaults to [slog.Default].
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.BootAttempts <= 0 {
		o.BootAttempts = DefaultBootAttempts
	}

	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}

	if o.CrashWaitTimeout <= 0 {
		o.CrashWaitTimeout = DefaultCrashWaitTimeout
	}

	if o.LogReadTimeout <= 0 {
		o.LogReadTimeout = DefaultLogReadTimeout
	}

	if o.Diagnostics == nil {
		o.Diagnostics = os.Stderr
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}
