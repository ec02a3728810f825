// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package guest drives the virtual machines kernels under test run in.
//
// A [Guest] is booted, probed for reachability, used to run test binaries
// and checked for crashes. Backends are selected by the [Kind] of the guest
// configuration. The only backend is [LinuxQemu].
//
// Failures of the host environment are returned as [exitcode.Error], as
// there is no remedy other than terminating the harness. Outcomes of the
// guest under test, like not being reachable or having stopped, are regular
// return values.
//
// Guests are not safe for concurrent use. Independent guests can be used in
// parallel.
package guest
