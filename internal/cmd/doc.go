// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cmd implements the guestrun command line tool.
//
// It boots a number of guests in parallel, runs a test binary in each of them
// and collects crash reports of guests that stop. Crashed guests are booted
// again for the next iteration.
package cmd
