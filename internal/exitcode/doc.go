// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package exitcode provides the exit status categories for unrecoverable
// failures and an error type carrying one.
package exitcode
