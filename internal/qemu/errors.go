// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import "errors"

var (
	// ErrTargetNotSupported is returned if there is no template for an
	// os/arch combination.
	ErrTargetNotSupported = errors.New("target not supported")

	// ErrEmptyImage is returned if no disk image is given.
	ErrEmptyImage = errors.New("image must not be empty")

	// ErrEmptyKernel is returned if no kernel is given.
	ErrEmptyKernel = errors.New("kernel must not be empty")

	// ErrZeroResource is returned if CPU number or memory size is zero.
	ErrZeroResource = errors.New("cpu number and memory size must not be 0")
)
