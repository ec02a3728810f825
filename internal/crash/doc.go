// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package crash provides crash reports of guests.
//
// A report is the raw console log of a guest that stopped, together with a
// one line title taken from the first kernel error message found in the log.
package crash
