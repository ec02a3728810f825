// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmdline provides a builder for process invocations: a binary name
// and an ordered list of bare flags and named options.
//
// A [Command] is a value. [Command.With] and [Command.WithBinary] return
// extended copies, so fixed templates can be declared once as package
// variables and extended per call without being mutated.
package cmdline
