// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import "errors"

var (
	// ErrUnknownKey is returned if the configuration contains keys that are
	// not known.
	ErrUnknownKey = errors.New("unknown key")

	// ErrMissingSegment is returned if a required segment is not present.
	ErrMissingSegment = errors.New("missing segment")

	// ErrEmptyKeyPath is returned if the ssh key path is empty.
	ErrEmptyKeyPath = errors.New("ssh key path must not be empty")

	// ErrKeyEncrypted is returned if the ssh key is protected by a
	// passphrase. Guests are accessed non-interactively, so the key can not
	// be unlocked.
	ErrKeyEncrypted = errors.New("ssh key is protected by a passphrase")
)
