// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package guest

import "errors"

var (
	// ErrUnsupportedKind is returned if there is no backend for the
	// configured guest.
	ErrUnsupportedKind = errors.New("unsupported guest")

	// ErrBootFailed is returned if the guest did not become reachable.
	ErrBootFailed = errors.New("guest did not boot")
)

const (
	noSessionMsg = "guest: no active session, boot first"

	// diagnosticSeparator terminates the console log printed on boot
	// failure.
	diagnosticSeparator = "==============================================="
)
