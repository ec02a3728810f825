// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline

import "errors"

var (
	// ErrArgumentCollision is returned if a unique option is used more than
	// once.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrEmptyBinary is returned if a [Command] without binary is built.
	ErrEmptyBinary = errors.New("binary must not be empty")
)
