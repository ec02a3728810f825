// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config provides the TOML configuration of the harness.
//
// The configuration has three segments. The guest segment selects the backend
// by os, arch and platform. The qemu and ssh segments configure the backend.
// They are optional in the file, as other backends might not need them, and
// are checked for presence by the backend.
package config
