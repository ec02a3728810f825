// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipe provides the log channel between a guest process and the host.
//
// The channel is an OS pipe with its capacity raised to [Capacity], because
// verbose kernel logs exceed the default capacity and a full pipe stalls the
// guest. Both ends are non-blocking. The read end supports draining whatever
// is buffered without waiting ([Reader.Drain]) and reading until all writers
// are gone ([Reader.ReadAll]).
package pipe
